package scoring

// Policy thresholds. Counts strictly above a threshold move the verdict down a tier.
const (
	unfundableFatal = 5
	unlikelyFatal   = 2
	atRiskCritical  = 5
	needsWorkCrit   = 2
)

// VerdictFor classifies a module from its triggered fatal and critical counts.
// The composite score never overrides a severity-driven verdict.
func VerdictFor(composite float64, fatalCount, criticalCount int) Verdict {
	switch {
	case fatalCount > unfundableFatal:
		return VerdictUnfundable
	case fatalCount > unlikelyFatal:
		return VerdictUnlikely
	case fatalCount > 0 || criticalCount > atRiskCritical:
		return VerdictAtRisk
	case criticalCount > needsWorkCrit:
		return VerdictNeedsWork
	default:
		return VerdictReady
	}
}
