// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/blinklabs-io/zkvote"
	"github.com/spf13/cobra"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loginCommand() *cobra.Command {
	var redirectURL string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Start a zkLogin authorization and print the provider URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, func(svc *zkvote.Service) error {
				url, err := svc.StartAuthorization(cmd.Context(), redirectURL)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			})
		},
	}
	cmd.Flags().
		StringVar(&redirectURL, "redirect", "", "redirect URL registered with the provider (default: <appUrl>/auth)")
	return cmd
}

func callbackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "callback <fragment|url>",
		Short: "Complete a login with the provider redirect fragment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(svc *zkvote.Service) error {
				id, err := svc.Session().CompleteAuthorization(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id.Address.String())
				return nil
			})
		},
	}
}

func sessionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, func(svc *zkvote.Service) error {
				info, ok := svc.Session().GetSession(cmd.Context())
				if !ok {
					return fmt.Errorf("not logged in")
				}
				return printJSON(cmd.OutOrStdout(), info)
			})
		},
	}
}

func logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, func(svc *zkvote.Service) error {
				return svc.Session().Logout(context.WithoutCancel(cmd.Context()))
			})
		},
	}
}
