package provision

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/platewire/boardgate/internal/services/access/credential"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <identifier>",
	Short: "Print the credential record for an identifier",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	identifier, err := credential.NormalizeIdentifier(args[0])
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	record, err := store.GetCredential(cmd.Context(), identifier)
	if err != nil {
		return err
	}

	fmt.Printf("identifier:    %s\n", record.Identifier)
	fmt.Printf("biometric:     %v\n", credential.HasBiometric(record))
	fmt.Printf("access count:  %d\n", record.AccessCount)
	if record.LastAccessAt != nil {
		fmt.Printf("last access:   %s\n", record.LastAccessAt.UTC().Format(time.RFC3339))
	} else {
		fmt.Printf("last access:   never\n")
	}
	fmt.Printf("created:       %s\n", record.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Printf("updated:       %s\n", record.UpdatedAt.UTC().Format(time.RFC3339))
	return nil
}
