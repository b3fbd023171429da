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
	"fmt"
	"strconv"

	"github.com/blinklabs-io/zkvote"
	"github.com/blinklabs-io/zkvote/internal/config"
	"github.com/blinklabs-io/zkvote/sui"
	"github.com/spf13/cobra"
)

func projectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List the projects in the votes object",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil || cfg.VotesObjectAddress == "" {
				return fmt.Errorf("VOTES_OBJECT_ADDRESS is required")
			}
			votesID, err := sui.ParseAddress(cfg.VotesObjectAddress)
			if err != nil {
				return err
			}
			return withService(cmd, func(svc *zkvote.Service) error {
				votes, err := svc.Ledger().GetProjects(cmd.Context(), votesID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, p := range votes.Projects {
					fmt.Fprintf(out, "%d\t%s\t%d\t%s\n", p.ID, p.Name, p.VoteCount, p.InfoURL)
				}
				return nil
			})
		},
	}
}

func balanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [address]",
		Short: "Show the native token balance of an address or the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(svc *zkvote.Service) error {
				var addrStr string
				if len(args) > 0 {
					addrStr = args[0]
				} else {
					info, ok := svc.Session().GetSession(cmd.Context())
					if !ok {
						return fmt.Errorf("no address given and not logged in")
					}
					addrStr = info.Address
				}
				addr, err := sui.ParseAddress(addrStr)
				if err != nil {
					return err
				}
				bal, err := svc.Ledger().GetBalance(cmd.Context(), addr)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), bal.String())
				return nil
			})
		},
	}
}

func parseProjectIDs(args []string) ([]uint64, error) {
	ret := make([]uint64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid project id %q", arg)
		}
		ret = append(ret, id)
	}
	return ret, nil
}

func voteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vote <project-id>...",
		Short: "Cast a sponsored vote for up to the configured number of projects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseProjectIDs(args)
			if err != nil {
				return err
			}
			return withService(cmd, func(svc *zkvote.Service) error {
				wf, err := svc.Workflow()
				if err != nil {
					return err
				}
				if _, err := wf.Load(cmd.Context()); err != nil {
					return err
				}
				outcome, err := wf.Submit(cmd.Context(), ids)
				if err != nil {
					return err
				}
				if outcome.Err != nil {
					return outcome.Err
				}
				conf, ok := wf.Confirmation()
				if !ok {
					return fmt.Errorf("vote finished without a record")
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "digest:", conf.Record.Digest)
				if conf.ExplorerURL != "" {
					fmt.Fprintln(out, "explorer:", conf.ExplorerURL)
				}
				fmt.Fprintln(out, "share:", conf.ShareURL)
				return nil
			})
		},
	}
}
