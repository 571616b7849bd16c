package provision

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platewire/boardgate/internal/services/access/credential"
)

func init() {
	rootCmd.AddCommand(clearBiometricCmd)
}

var clearBiometricCmd = &cobra.Command{
	Use:   "clear-biometric <identifier>",
	Short: "Remove the biometric enrollment so the next ceremony registers again",
	Args:  cobra.ExactArgs(1),
	RunE:  runClearBiometric,
}

func runClearBiometric(cmd *cobra.Command, args []string) error {
	identifier, err := credential.NormalizeIdentifier(args[0])
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ClearBiometricFields(cmd.Context(), identifier); err != nil {
		return err
	}
	fmt.Printf("Biometric enrollment cleared for %s\n", identifier)
	return nil
}
