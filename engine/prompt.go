package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	ai "github.com/spetersoncode/cogs"
)

const (
	openMarker  = "<tool_call>"
	closeMarker = "</tool_call>"
)

// promptEngine extracts tool calls from inline markup embedded in free text:
//
//	<tool_call>
//	{"name": "tool_name", "parameters": {...}}
//	</tool_call>
//
// The decoder is an incremental lexer. Text outside any markup span is
// emitted immediately as display content; a possible partial marker at a
// chunk boundary is withheld until disambiguated. Inside a span, text is
// buffered and interpreted: once the tool name is positively identified and
// the arguments object has begun, argument deltas are emitted; the call
// completes only when the matching closing marker is observed. Markers and
// JSON structure may be split across arbitrarily many chunk boundaries,
// including mid-token.
type promptEngine struct{}

// NewPromptEngineering constructs the inline-markup engine.
func NewPromptEngineering() Engine { return &promptEngine{} }

func (e *promptEngine) Kind() Kind { return PromptEngineering }

func (e *promptEngine) PreparePrompt(instructions string, tools []ai.Tool) string {
	if len(tools) == 0 {
		return instructions
	}
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\n## Available Tools\n\n")
	b.WriteString(describeTools(tools))
	b.WriteString("\nTo call a tool, emit exactly one block in this format:\n\n")
	b.WriteString(openMarker)
	b.WriteString("\n{\"name\": \"tool_name\", \"parameters\": {\"param\": \"value\"}}\n")
	b.WriteString(closeMarker)
	b.WriteString("\n\nEmit the block only when you want to call a tool. ")
	b.WriteString("Any text outside the block is shown to the user.")
	return b.String()
}

func (e *promptEngine) PrepareRequest(req Request) ai.RequestParams {
	// Tool schemas travel in the system prompt, never in the request.
	return ai.RequestParams{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

func (e *promptEngine) NewState() *State {
	st := NewState()
	st.Cursor = &promptCursor{}
	return st
}

func (e *promptEngine) ProcessChunk(st *State, chunk ai.StreamChunk) ChunkResult {
	res := ChunkResult{Reasoning: chunk.Reasoning}

	st.Reasoning.WriteString(chunk.Reasoning)
	if chunk.FinishReason != "" {
		st.Finish = chunk.FinishReason
	}
	if chunk.Usage != nil {
		st.Usage.Add(*chunk.Usage)
	}

	cur, ok := st.Cursor.(*promptCursor)
	if !ok {
		// State not created by this engine; degrade to plain text.
		st.Content.WriteString(chunk.Content)
		res.Content = chunk.Content
		return res
	}

	st.Content.WriteString(chunk.Content)
	cur.feed(st, chunk.Content, &res)

	if res.HasToolCallUpdate {
		res.ToolCalls = st.Snapshot()
	}
	return res
}

func (e *promptEngine) Finalize(st *State) *ai.Response {
	raw := st.Content.String()
	var display string

	if cur, ok := st.Cursor.(*promptCursor); ok {
		// Flush whatever the lexer was still withholding.
		if cur.inCall {
			// Unterminated span: degrade to the raw span text.
			if cur.call != nil {
				cur.call.Invalid = true
			}
			cur.display.WriteString(openMarker)
			cur.display.WriteString(cur.body.String())
			cur.display.WriteString(cur.buf)
		} else {
			cur.display.WriteString(cur.buf)
		}
		cur.buf = ""
		display = cur.display.String()
	} else {
		display = raw
	}

	toolCalls := st.Snapshot()
	return &ai.Response{
		Content:      display,
		RawContent:   raw,
		Reasoning:    st.Reasoning.String(),
		ToolCalls:    toolCalls,
		FinishReason: st.finishReason(toolCalls),
		Usage:        st.Usage,
	}
}

// AssistantMessage folds everything, tool markup included, back into plain
// text: that is the only shape this variant can replay to the model.
func (e *promptEngine) AssistantMessage(resp *ai.Response) ai.Message {
	return ai.Message{
		Role:    ai.RoleAssistant,
		Content: resp.RawContent,
	}
}

func (e *promptEngine) ToolResultMessages(resp *ai.Response, results []ai.ToolResult) []ai.Message {
	if len(results) == 0 {
		return nil
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "<tool_result name=%q id=%q>\n", r.ToolName, r.ToolCallID)
		b.WriteString(r.Content)
		b.WriteString("\n</tool_result>")
	}
	return []ai.Message{{Role: ai.RoleUser, Content: b.String()}}
}

// promptCursor is the engine-private lexer state.
type promptCursor struct {
	buf     string // unclassified text, possibly a partial marker
	inCall  bool
	body    strings.Builder // raw text inside the current span
	call    *CallState      // created once the name is identified
	scan    argScan
	seq     int
	display strings.Builder
}

// argScan tracks interpretation of the current span body.
type argScan struct {
	phase    int // scanName, scanArgsStart, scanArgs, scanDone
	pos      int // next body offset to interpret (scanArgs phase)
	nameEnd  int // body offset just past the name value
	depth    int
	inString bool
	escaped  bool
}

const (
	scanName = iota
	scanArgsStart
	scanArgs
	scanDone
)

func (c *promptCursor) feed(st *State, text string, res *ChunkResult) {
	c.buf += text
	for {
		if !c.inCall {
			if idx := strings.Index(c.buf, openMarker); idx >= 0 {
				c.emitDisplay(c.buf[:idx], res)
				c.buf = c.buf[idx+len(openMarker):]
				c.inCall = true
				c.body.Reset()
				c.scan = argScan{}
				c.call = nil
				continue
			}
			keep := partialMarkerSuffix(c.buf, openMarker)
			c.emitDisplay(c.buf[:len(c.buf)-keep], res)
			c.buf = c.buf[len(c.buf)-keep:]
			return
		}

		if idx := strings.Index(c.buf, closeMarker); idx >= 0 {
			c.consumeBody(st, c.buf[:idx], res)
			c.buf = c.buf[idx+len(closeMarker):]
			c.completeCall(st, res)
			c.inCall = false
			continue
		}
		keep := partialMarkerSuffix(c.buf, closeMarker)
		c.consumeBody(st, c.buf[:len(c.buf)-keep], res)
		c.buf = c.buf[len(c.buf)-keep:]
		return
	}
}

func (c *promptCursor) emitDisplay(s string, res *ChunkResult) {
	if s == "" {
		return
	}
	c.display.WriteString(s)
	res.Content += s
}

// consumeBody buffers span text and advances interpretation: first the tool
// name, then the start of the arguments object, then argument deltas.
func (c *promptCursor) consumeBody(st *State, s string, res *ChunkResult) {
	if s != "" {
		c.body.WriteString(s)
	}
	body := c.body.String()

	if c.scan.phase == scanName {
		name, end, ok := scanJSONStringField(body, "name", 0)
		if !ok {
			return
		}
		c.seq++
		c.call = st.AddCall(fmt.Sprintf("call_%d", c.seq), name)
		c.scan.phase = scanArgsStart
		c.scan.nameEnd = end
		res.HasToolCallUpdate = true
		res.Updates = append(res.Updates, ToolCallUpdate{ID: c.call.ID, Name: name})
	}

	if c.scan.phase == scanArgsStart {
		start, ok := scanObjectFieldStart(body, c.scan.nameEnd, "parameters", "arguments")
		if !ok {
			return
		}
		c.scan.phase = scanArgs
		c.scan.pos = start
	}

	if c.scan.phase == scanArgs {
		delta := c.scanArguments(body)
		if delta != "" {
			c.call.Args.WriteString(delta)
			res.HasToolCallUpdate = true
			res.Updates = append(res.Updates, ToolCallUpdate{
				ID:             c.call.ID,
				Name:           c.call.Name,
				ArgumentsDelta: delta,
			})
		}
	}
}

// scanArguments walks the arguments object character by character from the
// current position, returning the bytes that belong to it. Brace depth is
// tracked with string awareness so object braces inside string values do not
// end the object early.
func (c *promptCursor) scanArguments(body string) string {
	start := c.scan.pos
	i := c.scan.pos
	for ; i < len(body); i++ {
		ch := body[i]
		if c.scan.inString {
			if c.scan.escaped {
				c.scan.escaped = false
				continue
			}
			switch ch {
			case '\\':
				c.scan.escaped = true
			case '"':
				c.scan.inString = false
			}
			continue
		}
		switch ch {
		case '"':
			c.scan.inString = true
		case '{':
			c.scan.depth++
		case '}':
			c.scan.depth--
			if c.scan.depth == 0 {
				c.scan.phase = scanDone
				c.scan.pos = i + 1
				return body[start : i+1]
			}
		}
	}
	c.scan.pos = i
	return body[start:i]
}

// completeCall finalizes the span at its closing marker. A fully scanned call
// is simply marked complete; anything less falls back to a tolerant parse of
// the whole span body, and a span that never yields a tool name degrades to
// display text.
func (c *promptCursor) completeCall(st *State, res *ChunkResult) {
	defer func() {
		c.body.Reset()
		c.scan = argScan{}
		c.call = nil
	}()

	if c.scan.phase == scanDone {
		c.call.Complete = true
		res.HasToolCallUpdate = true
		res.Updates = append(res.Updates, ToolCallUpdate{
			ID:       c.call.ID,
			Name:     c.call.Name,
			Complete: true,
		})
		return
	}

	body := strings.TrimSpace(c.body.String())
	var envelope struct {
		Name       string          `json:"name"`
		Parameters json.RawMessage `json:"parameters"`
		Arguments  json.RawMessage `json:"arguments"`
	}
	parsed := false
	if repaired, ok := completeJSON(body); ok {
		parsed = json.Unmarshal([]byte(repaired), &envelope) == nil && envelope.Name != ""
	}
	if !parsed {
		// Not a tool call after all: surface the raw span as display text.
		if c.call != nil {
			c.call.Invalid = true
		}
		raw := openMarker + c.body.String() + closeMarker
		c.emitDisplay(raw, res)
		return
	}

	if c.call == nil {
		c.seq++
		c.call = st.AddCall(fmt.Sprintf("call_%d", c.seq), envelope.Name)
	}

	canonical := "{}"
	if len(envelope.Parameters) > 0 {
		canonical = string(envelope.Parameters)
	} else if len(envelope.Arguments) > 0 {
		canonical = string(envelope.Arguments)
	}

	emitted := c.call.Args.String()
	if !strings.HasPrefix(canonical, emitted) {
		// The scanned prefix disagrees with the repaired parse; nothing safe
		// can be emitted on top of it.
		c.call.Invalid = true
		return
	}
	delta := canonical[len(emitted):]
	if delta != "" {
		c.call.Args.WriteString(delta)
	}
	c.call.Complete = true
	res.HasToolCallUpdate = true
	res.Updates = append(res.Updates, ToolCallUpdate{
		ID:             c.call.ID,
		Name:           c.call.Name,
		ArgumentsDelta: delta,
		Complete:       true,
	})
}

// partialMarkerSuffix returns the length of the longest suffix of s that is a
// proper prefix of marker. That suffix must be withheld: the next chunk may
// complete the marker.
func partialMarkerSuffix(s, marker string) int {
	max := len(marker) - 1
	if len(s) < max {
		max = len(s)
	}
	for k := max; k > 0; k-- {
		if strings.HasSuffix(s, marker[:k]) {
			return k
		}
	}
	return 0
}

// scanJSONStringField finds a complete `"field": "value"` pair at or after
// from, returning the unescaped value and the offset just past it. Reports
// false while the value's closing quote has not arrived yet.
func scanJSONStringField(s, field string, from int) (string, int, bool) {
	key := `"` + field + `"`
	idx := strings.Index(s[from:], key)
	if idx < 0 {
		return "", 0, false
	}
	i := from + idx + len(key)
	i = skipSpace(s, i)
	if i >= len(s) || s[i] != ':' {
		return "", 0, false
	}
	i = skipSpace(s, i+1)
	if i >= len(s) || s[i] != '"' {
		return "", 0, false
	}
	start := i
	escaped := false
	for i++; i < len(s); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch s[i] {
		case '\\':
			escaped = true
		case '"':
			var value string
			if err := json.Unmarshal([]byte(s[start:i+1]), &value); err != nil {
				return "", 0, false
			}
			return value, i + 1, true
		}
	}
	return "", 0, false
}

// scanObjectFieldStart finds the opening brace of the first of the named
// object fields at or after from, returning its offset.
func scanObjectFieldStart(s string, from int, fields ...string) (int, bool) {
	for _, field := range fields {
		key := `"` + field + `"`
		idx := strings.Index(s[from:], key)
		if idx < 0 {
			continue
		}
		i := from + idx + len(key)
		i = skipSpace(s, i)
		if i >= len(s) || s[i] != ':' {
			continue
		}
		i = skipSpace(s, i+1)
		if i < len(s) && s[i] == '{' {
			return i, true
		}
	}
	return 0, false
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\r' || s[i] == '\n') {
		i++
	}
	return i
}

var _ Engine = (*promptEngine)(nil)
