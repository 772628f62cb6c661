package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tourneyhub/tourneyhub/client-core/internal/identity"
	"github.com/tourneyhub/tourneyhub/client-core/internal/models"
)

func newTokenCmd() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and inspect identity-emulator id tokens",
	}

	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue an HS256 id token signed with IDENTITY_HMAC_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, _ := cmd.Flags().GetString("sub")
			email, _ := cmd.Flags().GetString("email")
			phone, _ := cmd.Flags().GetString("phone")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if sub == "" {
				return errors.New("--sub is required")
			}
			tok, err := identity.IssueToken(cfg.Identity.HMACSecret, &models.Identity{ID: sub, Email: email, PhoneNumber: phone}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	issueCmd.Flags().String("sub", "", "subject (identity id)")
	issueCmd.Flags().String("email", "", "email claim")
	issueCmd.Flags().String("phone", "", "phone_number claim")
	issueCmd.Flags().Duration("ttl", time.Hour, "token lifetime")

	verifyCmd := &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify an emulator id token and print its identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Identity.HMACSecret == "" {
				return errors.New("IDENTITY_HMAC_SECRET is not set")
			}
			tok, err := identity.NewHMACVerifier(cfg.Identity.HMACSecret).Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			id, err := identity.IdentityFromToken(tok)
			if err != nil {
				return err
			}
			return render(cmd, id, func(w io.Writer) {
				fmt.Fprintf(w, "ID\tEMAIL\tPHONE\n")
				fmt.Fprintf(w, "%s\t%s\t%s\n", id.ID, id.Email, id.PhoneNumber)
			})
		},
	}

	tokenCmd.AddCommand(issueCmd, verifyCmd)
	return tokenCmd
}
