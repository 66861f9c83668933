package domain

// Stage is the position of a single mod in the install pipeline.
// Stages only move forward; Succeeded and Failed are terminal.
type Stage int

const (
	StagePending Stage = iota
	StageDownloading
	StageVerifying
	StageExtracting
	StageResolving
	StagePlacing
	StageSucceeded
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageDownloading:
		return "downloading"
	case StageVerifying:
		return "verifying"
	case StageExtracting:
		return "extracting"
	case StageResolving:
		return "resolving"
	case StagePlacing:
		return "placing"
	case StageSucceeded:
		return "succeeded"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Verb is the status text prefix shown while a mod is in this stage.
func (s Stage) Verb() string {
	switch s {
	case StageDownloading:
		return "Downloading"
	case StageVerifying:
		return "Verifying"
	case StageExtracting:
		return "Extracting"
	case StageResolving:
		return "Resolving"
	case StagePlacing:
		return "Installing"
	default:
		return ""
	}
}

// Action names the stage in error messages ("download failed", "verify failed", ...).
func (s Stage) Action() string {
	switch s {
	case StageDownloading:
		return "download"
	case StageVerifying:
		return "verify"
	case StageExtracting:
		return "extract"
	case StageResolving:
		return "resolve"
	case StagePlacing:
		return "install"
	default:
		return s.String()
	}
}
