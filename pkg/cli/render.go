package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/blackcoderx/reqtree/pkg/auth"
	"github.com/blackcoderx/reqtree/pkg/request"
	"github.com/blackcoderx/reqtree/pkg/tree"
	"github.com/blackcoderx/reqtree/pkg/workspace"
)

// RenderTree lists every node below root with its path, one per line.
// Collapsed folders hide their children unless all is set.
func RenderTree(root *tree.Node, all bool) string {
	var b strings.Builder
	b.WriteString(FolderStyle.Render(root.Label))
	b.WriteString("\n")
	root.Walk(func(p tree.Path, n *tree.Node) bool {
		indent := strings.Repeat("  ", len(p))
		b.WriteString(indent)
		b.WriteString(PathStyle.Render(p.String()))
		b.WriteString(" ")
		if n.IsLeaf() {
			b.WriteString(MethodBadge(n.Content.Method))
			b.WriteString(LeafStyle.Render(n.Label))
			b.WriteString(" ")
			b.WriteString(URLStyle.Render(n.Content.URL))
		} else {
			marker := "▸ "
			if n.Expanded {
				marker = "▾ "
			}
			b.WriteString(FolderStyle.Render(marker + n.Label))
		}
		b.WriteString("\n")
		return n.Expanded || all
	})
	return b.String()
}

// RenderServers lists servers with their index and auth kind.
func RenderServers(servers []request.Server) string {
	if len(servers) == 0 {
		return HelpStyle.Render("no servers, add one with `reqtree server add <url>`") + "\n"
	}
	var b strings.Builder
	for i, s := range servers {
		fmt.Fprintf(&b, "%s %s %s\n",
			PathStyle.Render(fmt.Sprintf("[%d]", i)),
			LeafStyle.Render(s.BaseURL),
			HelpStyle.Render(auth.KindOf(s.Auth)))
	}
	return b.String()
}

// RenderRun summarizes a folder run.
func RenderRun(results []workspace.RunResult) string {
	var b strings.Builder
	passed := 0
	for _, r := range results {
		status := "ERR"
		style := ErrorStyle
		if r.Response != nil && r.Response.Status != 0 {
			status = fmt.Sprint(r.Response.Status)
			style = StatusStyle(r.Response.Status)
		}
		if r.Passed() {
			passed++
		}
		fmt.Fprintf(&b, "%s %s %s", style.Render(fmt.Sprintf("%-3s", status)), PathStyle.Render(r.Path.String()), r.Label)
		if r.Err != nil {
			fmt.Fprintf(&b, " %s", ErrorStyle.Render(r.Err.Error()))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n%d/%d passed\n", passed, len(results))
	return b.String()
}

// ResponseMarkdown renders a response snapshot as markdown: a status line,
// the headers and the body in a code block.
func ResponseMarkdown(resp *request.Response) string {
	var b strings.Builder
	if resp.Status == 0 {
		fmt.Fprintf(&b, "**request failed** `%s`\n\n", resp.URL)
	} else {
		fmt.Fprintf(&b, "**%d %s** `%s`", resp.Status, http.StatusText(resp.Status), resp.URL)
		if resp.Duration > 0 {
			fmt.Fprintf(&b, " in %s", resp.Duration.Round(time.Millisecond))
		}
		b.WriteString("\n\n")
	}

	if len(resp.Headers) > 0 {
		keys := make([]string, 0, len(resp.Headers))
		for k := range resp.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("| Header | Value |\n|---|---|\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "| %s | %s |\n", k, strings.ReplaceAll(resp.Headers[k], "|", `\|`))
		}
		b.WriteString("\n")
	}

	if resp.Data != "" {
		b.WriteString(codeBlock(resp.Data))
	}
	return b.String()
}

func codeBlock(body string) string {
	lang := ""
	var js any
	if json.Unmarshal([]byte(body), &js) == nil {
		lang = "json"
		if pretty, err := json.MarshalIndent(js, "", "  "); err == nil {
			body = string(pretty)
		}
	}
	return "```" + lang + "\n" + strings.TrimRight(body, "\n") + "\n```\n"
}

// RenderMarkdown renders md with glamour. It returns md unchanged when the
// renderer fails.
func RenderMarkdown(md string, width int) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

// RenderResponse renders a response snapshot for the terminal.
func RenderResponse(resp *request.Response) string {
	if resp == nil {
		return HelpStyle.Render("no response yet") + "\n"
	}
	return RenderMarkdown(ResponseMarkdown(resp), 100)
}
