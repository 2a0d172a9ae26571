// Copyright 2025 Kadir Pekel
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

package runtime

import (
	"fmt"
	"strings"
	"time"

	"github.com/kadirpekel/obot/pkg/errs"
	"github.com/kadirpekel/obot/pkg/tools"
)

// toolCallPrefix announces a tool invocation in model output, one call
// per line: "TOOL_CALL: <id> [arguments...]".
const toolCallPrefix = "TOOL_CALL:"

// checkToolLine validates one line of model output. Lines that do not
// announce a tool call pass through; a tool call naming an id outside the
// catalogue (by canonical id, CLI alias or IDE alias) is rejected.
func (h *RunHandle) checkToolLine(line string) error {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, toolCallPrefix) {
		return nil
	}

	call := strings.TrimSpace(strings.TrimPrefix(line, toolCallPrefix))
	fields := strings.Fields(call)
	if len(fields) == 0 {
		return h.invalidToolCall("tool call names no tool")
	}

	id := fields[0]
	reg := h.o.tools
	if reg.IsValid(tools.ID(id)) {
		return nil
	}
	if _, ok := reg.ByCLIAlias(id); ok {
		return nil
	}
	if _, ok := reg.ByIDEAlias(id); ok {
		return nil
	}
	return h.invalidToolCall(fmt.Sprintf("unknown tool %q", id))
}

func (h *RunHandle) invalidToolCall(detail string) error {
	return &errs.OrchestrationError{
		Code:        errs.ErrInvalidInput,
		Severity:    errs.SeverityWarning,
		Component:   "runtime",
		Message:     "invalid tool call: " + detail,
		Rule:        "tool calls must name a catalogued tool",
		Timestamp:   time.Now(),
		State:       h.frozen(),
		Recoverable: true,
	}
}
