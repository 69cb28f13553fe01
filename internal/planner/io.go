package planner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WritePlan writes plan as indented JSON to path, creating parent directories.
func WritePlan(path string, plan ActionPlan) error {
	if err := ValidatePlan(plan); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure plan dir: %w", err)
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}

func LoadPlan(path string) (ActionPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ActionPlan{}, fmt.Errorf("read plan: %w", err)
	}
	var plan ActionPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return ActionPlan{}, fmt.Errorf("parse plan json: %w", err)
	}
	if err := ValidatePlan(plan); err != nil {
		return ActionPlan{}, err
	}
	return plan, nil
}

// ResolvePlanPath accepts either a plan file or the directory holding plan.json.
func ResolvePlanPath(inputPath string) (string, error) {
	if inputPath == "" {
		return "", fmt.Errorf("plan path is required")
	}
	info, err := os.Stat(inputPath)
	if err != nil {
		return "", fmt.Errorf("stat plan path: %w", err)
	}
	if info.IsDir() {
		return filepath.Join(inputPath, "plan.json"), nil
	}
	return inputPath, nil
}
