package constants

// RunMode says how a run resolves its extraction configuration.
type RunMode string

const (
	RunModeTemplate RunMode = "template" // fields come from a named template
	RunModeAdhoc    RunMode = "adhoc"    // caller supplied the rules inline
)

func (m RunMode) String() string {
	return string(m)
}
