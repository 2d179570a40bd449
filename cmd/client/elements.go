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
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	ue4mlClient "github.com/ue4ml/ue4ml/clients/ue4ml"
)

type listElementTypes func(client *ue4mlClient.Client, ctx context.Context) (map[string]uint32, error)

func newElementsCmd(use string, short string, elementKind string, list listElementTypes) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(_cmd *cobra.Command, _args []string) error {
			consoleOutputFormat, err := retrieveConsoleOutputFormat()
			if err != nil {
				return err
			}

			client, err := createClient()
			if err != nil {
				return err
			}

			ctx, cancel := contextWithTimeout()
			defer cancel()

			types, err := list(client, ctx)
			if err != nil {
				return wrapTimeoutError(err)
			}

			if consoleOutputFormat == json {
				return renderJSON(types)
			}

			names := make([]string, 0, len(types))
			for name := range types {
				names = append(names, name)
			}
			sort.Slice(names, func(i, j int) bool {
				return types[names[i]] < types[names[j]]
			})

			table := tablewriter.NewWriter(os.Stdout)
			table.SetBorder(false)
			table.SetAutoWrapText(false)
			table.SetHeader([]string{"id", elementKind, "description"})
			for _, name := range names {
				description, err := client.GetDescription(ctx, name)
				if err != nil {
					return wrapTimeoutError(err)
				}
				table.Append([]string{fmt.Sprintf("%d", types[name]), name, description})
			}
			table.SetCaption(true, fmt.Sprintf("%d %ss", len(names), elementKind))
			table.Render()
			return nil
		},
	}
}

// sensorsCmd represents the `ue4ml client sensors` command
var sensorsCmd = newElementsCmd(
	"sensors",
	"List the sensor types available in the environment",
	"sensor",
	(*ue4mlClient.Client).ListSensorTypes,
)

// actuatorsCmd represents the `ue4ml client actuators` command
var actuatorsCmd = newElementsCmd(
	"actuators",
	"List the actuator types available in the environment",
	"actuator",
	(*ue4mlClient.Client).ListActuatorTypes,
)
