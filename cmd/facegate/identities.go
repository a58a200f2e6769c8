package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/facegate/internal/facegate/service"
	"github.com/BrandonDHaskell/facegate/internal/facegate/types"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "Administer enrolled identities",
}

var identitiesEnrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll an identity from a JSON vector file",
	Long: `Enroll a new identity. --vector-file holds the enrollment embedding,
either as a bare JSON array of numbers or as an embedding server response
({"faces":[{"embedding":[...]}]}), in which case the first face is used.`,
	Args: cobra.NoArgs,
	RunE: runIdentitiesEnroll,
}

var identitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List identities in enrollment order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRegistry(cmd.Context(), func(ctx context.Context, r *service.IdentityRegistry) error {
			ids, err := r.List(ctx)
			if err != nil {
				return err
			}
			return printJSON(ids)
		})
	},
}

var identitiesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid identity id: %w", err)
		}
		return withRegistry(cmd.Context(), func(ctx context.Context, r *service.IdentityRegistry) error {
			ident, err := r.Get(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(ident)
		})
	},
}

var identitiesSetLevelCmd = &cobra.Command{
	Use:   "set-level <id> <level>",
	Short: "Change an identity's access level",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid identity id: %w", err)
		}
		level, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid access level: %w", err)
		}
		return withRegistry(cmd.Context(), func(ctx context.Context, r *service.IdentityRegistry) error {
			ident, err := r.UpdateAccessLevel(ctx, id, level)
			if err != nil {
				return err
			}
			return printJSON(ident)
		})
	},
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
	identitiesCmd.AddCommand(identitiesEnrollCmd, identitiesListCmd, identitiesGetCmd, identitiesSetLevelCmd,
		activeCmd("deactivate", "Stop an identity from matching", false),
		activeCmd("reactivate", "Let a deactivated identity match again", true),
	)

	identitiesEnrollCmd.Flags().String("name", "", "Display name")
	identitiesEnrollCmd.Flags().String("email", "", "Unique email address")
	identitiesEnrollCmd.Flags().Int("level", 0, "Access level")
	identitiesEnrollCmd.Flags().String("vector-file", "", "Path to the enrollment vector JSON")
	_ = identitiesEnrollCmd.MarkFlagRequired("name")
	_ = identitiesEnrollCmd.MarkFlagRequired("email")
	_ = identitiesEnrollCmd.MarkFlagRequired("vector-file")
}

func activeCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid identity id: %w", err)
			}
			return withRegistry(cmd.Context(), func(ctx context.Context, r *service.IdentityRegistry) error {
				set := r.Deactivate
				if active {
					set = r.Reactivate
				}
				ident, err := set(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(ident)
			})
		},
	}
}

func runIdentitiesEnroll(cmd *cobra.Command, _ []string) error {
	vec, err := readVectorFile(mustGetString(cmd, "vector-file"))
	if err != nil {
		return err
	}
	req := types.EnrollRequest{
		Name:        mustGetString(cmd, "name"),
		Email:       mustGetString(cmd, "email"),
		AccessLevel: mustGetInt(cmd, "level"),
		Vector:      vec,
	}
	return withRegistry(cmd.Context(), func(ctx context.Context, r *service.IdentityRegistry) error {
		ident, err := r.Enroll(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(ident)
	})
}

func withRegistry(ctx context.Context, fn func(context.Context, *service.IdentityRegistry) error) error {
	st, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer st.close()
	return fn(ctx, service.NewIdentityRegistry(st.identities, cfg.Matcher.Dimension, logger.Named("registry"), nil))
}

// readVectorFile accepts a JSON array of numbers or an embedding server
// response and returns the vector.
func readVectorFile(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vector file: %w", err)
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err == nil {
		return vec, nil
	}

	var resp struct {
		Faces []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"faces"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse vector file: %w", err)
	}
	if len(resp.Faces) == 0 {
		return nil, errors.New("vector file contains no face embedding")
	}
	return resp.Faces[0].Embedding, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
