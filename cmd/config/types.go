package config

// GlobalFlags holds the persistent flags shared by all commands
type GlobalFlags struct {
	ConfigFile string
	LogLevel   string
	Set        []string // key=value settings overrides
}

// RunFlags holds flags of the run command
type RunFlags struct {
	NoWait bool   // do not wait for enter before exiting
	JSON   bool   // print the run summary as JSON on stdout
	DryRun bool   // run tests but do not touch the ledger
	Sheet  string // overrides the sheet name
}
