package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tourneyhub/tourneyhub/client-core/internal/profiles"
)

func newProfileCmd() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect user profiles",
	}
	profileCmd.AddCommand(&cobra.Command{
		Use:   "resolve <identity-id>",
		Short: "Resolve a profile the way session bootstrap does",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeFn, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			repo := profiles.NewMongoRepository(db.Collection(cfg.MongoDB.ProfilesCollection))
			res := profiles.NewResolver(repo, cfg.Bootstrap.ProfileFetch).Resolve(cmd.Context(), args[0])
			return renderResolution(cmd, args[0], res)
		},
	})
	return profileCmd
}

type resolution struct {
	IdentityID  string   `json:"identityId" yaml:"identityId"`
	Outcome     string   `json:"outcome" yaml:"outcome"`
	Roles       []string `json:"roles,omitempty" yaml:"roles,omitempty"`
	DisplayName string   `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Error       string   `json:"error,omitempty" yaml:"error,omitempty"`
}

func renderResolution(cmd *cobra.Command, id string, res profiles.Result) error {
	out := resolution{IdentityID: id, Outcome: res.Outcome.String()}
	if res.Profile != nil {
		out.Roles = res.Profile.Roles
		if len(out.Roles) == 0 && res.Profile.Role != "" {
			out.Roles = []string{res.Profile.Role}
		}
		out.DisplayName = res.Profile.DisplayName
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return render(cmd, out, func(w io.Writer) {
		fmt.Fprintf(w, "IDENTITY\tOUTCOME\tROLES\tNAME\tERROR\n")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", out.IdentityID, out.Outcome, strings.Join(out.Roles, ","), out.DisplayName, out.Error)
	})
}
