package cmd

func init() {
	RegisterCommand(&Command{
		Name:  "version",
		Short: "Print version information",
		Long:  "Print the nativeui version and build time.",
		Usage: "nativeui version",
		Run: func(args []string) error {
			printVersion()
			return nil
		},
	})
}
