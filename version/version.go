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

package version

// Version and Hash are overridden at build time using
// -ldflags "-X github.com/ue4ml/ue4ml/version.Version=... -X github.com/ue4ml/ue4ml/version.Hash=..."
var Version = "0.0.0-dev"
var Hash = "unknown"

// ProtocolVersion is reported to RPC clients, it changes whenever the function surface or the space JSON
// format changes in a way that breaks existing clients.
const ProtocolVersion = "0.1"
