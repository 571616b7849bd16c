package provision

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/platewire/boardgate/internal/services/access/credential"
	"github.com/platewire/boardgate/internal/services/access/pin"
	"github.com/platewire/boardgate/internal/services/access/storage"
)

func init() {
	rootCmd.AddCommand(setPinCmd)
}

var setPinCmd = &cobra.Command{
	Use:   "set-pin <identifier> <pin>",
	Short: "Create or replace the PIN for an identifier",
	Args:  cobra.ExactArgs(2),
	RunE:  runSetPin,
}

func runSetPin(cmd *cobra.Command, args []string) error {
	identifier, rawPin := args[0], args[1]

	if err := pin.Validate(rawPin); err != nil {
		return err
	}
	hash, err := pin.Hash(rawPin)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}

	record, err := credential.New(identifier, hash, time.Now)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()

	// A new PIN must not drop an existing biometric enrollment.
	existing, err := store.GetCredential(ctx, record.Identifier)
	switch {
	case err == nil:
		record.CredentialID = existing.CredentialID
		record.CredentialJSON = existing.CredentialJSON
		record.LastAccessAt = existing.LastAccessAt
		record.AccessCount = existing.AccessCount
		record.CreatedAt = existing.CreatedAt
	case errors.Is(err, storage.ErrNotFound):
	default:
		return err
	}

	if err := store.PutCredential(ctx, record); err != nil {
		return err
	}
	fmt.Printf("PIN set for %s\n", record.Identifier)
	return nil
}
