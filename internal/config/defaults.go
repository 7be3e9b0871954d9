package config

const (
	defaultLogDir     = "~/.local/share/qproject/logs"
	defaultHistoryDB  = "~/.local/share/qproject/history.db"
	defaultGitBinary  = "git"
	defaultSudoBinary = "sudo"
	defaultFaclBinary = "setfacl"
	defaultExecutable = "run"
	defaultUmask      = "077"
	defaultLogLevel   = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Tools: Tools{
			Git:     defaultGitBinary,
			Sudo:    defaultSudoBinary,
			Setfacl: defaultFaclBinary,
		},
		Run: Run{
			Executable: defaultExecutable,
			Umask:      defaultUmask,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
