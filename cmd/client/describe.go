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

	"github.com/spf13/cobra"
)

// describeCmd represents the `ue4ml client describe` command
var describeCmd = &cobra.Command{
	Use:   "describe <name>",
	Short: "Describe a function, a sensor type or an actuator type",
	Args:  cobra.ExactArgs(1),
	RunE: func(_cmd *cobra.Command, args []string) error {
		client, err := createClient()
		if err != nil {
			return err
		}

		ctx, cancel := contextWithTimeout()
		defer cancel()

		description, err := client.GetDescription(ctx, args[0])
		if err != nil {
			return wrapTimeoutError(err)
		}
		fmt.Println(description)
		return nil
	},
}
