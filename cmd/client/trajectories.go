// Copyright 2023 AI Redefined Inc. <dev+cogment@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
)

func parseSessionIDs(args []string) ([]uint64, error) {
	sessionIDs := make([]uint64, 0, len(args))
	for _, arg := range args {
		sessionID, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid session id %q", arg)
		}
		sessionIDs = append(sessionIDs, sessionID)
	}
	return sessionIDs, nil
}

func formatFloats(values []float32) string {
	formatted := make([]string, len(values))
	for i, value := range values {
		formatted[i] = strconv.FormatFloat(float64(value), 'g', 4, 32)
	}
	return strings.Join(formatted, " ")
}

// trajectoriesCmd represents the `ue4ml client trajectories` command
var trajectoriesCmd = &cobra.Command{
	Use:   "trajectories [session_id...]",
	Short: "List the trajectories recorded by the environment",
	RunE: func(_cmd *cobra.Command, args []string) error {
		consoleOutputFormat, err := retrieveConsoleOutputFormat()
		if err != nil {
			return err
		}

		sessionIDs, err := parseSessionIDs(args)
		if err != nil {
			return err
		}

		client, err := createClient()
		if err != nil {
			return err
		}

		ctx, cancel := contextWithTimeout()
		defer cancel()

		infos, err := client.ListTrajectories(ctx, sessionIDs, nil)
		if err != nil {
			return wrapTimeoutError(err)
		}

		if consoleOutputFormat == json {
			return renderJSON(infos)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetBorder(false)
		table.SetHeader([]string{"session", "agent", "samples", "done"})
		for _, info := range infos {
			table.Append([]string{
				fmt.Sprintf("%d", info.Key.SessionID),
				fmt.Sprintf("%d", info.Key.AgentID),
				fmt.Sprintf("%d", info.SamplesCount),
				fmt.Sprintf("%t", info.Done),
			})
		}
		table.SetCaption(true, fmt.Sprintf("%d trajectories", len(infos)))
		table.Render()
		return nil
	},
}

// trajectoryCmd represents the `ue4ml client trajectory` command
var trajectoryCmd = &cobra.Command{
	Use:   "trajectory session_id agent_id",
	Short: "Display the samples of a recorded trajectory",
	Args:  cobra.ExactArgs(2),
	RunE: func(_cmd *cobra.Command, args []string) error {
		consoleOutputFormat, err := retrieveConsoleOutputFormat()
		if err != nil {
			return err
		}

		sessionID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid session id %q", args[0])
		}
		agentID, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid agent id %q", args[1])
		}

		client, err := createClient()
		if err != nil {
			return err
		}

		ctx, cancel := contextWithTimeout()
		defer cancel()

		samples, err := client.GetTrajectory(ctx, sessionID, agents.AgentID(agentID))
		if err != nil {
			return wrapTimeoutError(err)
		}

		if consoleOutputFormat == json {
			return renderJSON(samples)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetBorder(false)
		table.SetAutoWrapText(false)
		table.SetHeader([]string{"tick", "reward", "done", "observations"})
		for _, sample := range samples {
			table.Append([]string{
				fmt.Sprintf("%d", sample.Tick),
				fmt.Sprintf("%g", sample.Reward),
				fmt.Sprintf("%t", sample.Done),
				formatFloats(sample.Observations),
			})
		}
		table.SetCaption(true, fmt.Sprintf("%d samples", len(samples)))
		table.Render()
		return nil
	},
}
