// ABOUTME: Operator CLI for the ghiseu-gateway backoffice
// ABOUTME: Talks to the operator HTTP API with a JWT bearer token

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
)

const banner = `
       _     _                                         _
  __ _| |__ (_)___  ___ _   _        ___  _ __   ___  | |
 / _' | '_ \| / __|/ _ \ | | |_____ / _ \| '_ \ / _ \ |_|
| (_| | | | | \__ \  __/ |_| |_____| (_) | |_) |  __/  _
 \__, |_| |_|_|___/\___|\__,_|      \___/| .__/ \___| (_)
 |___/                                   |_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	baseURL := os.Getenv("GHISEU_GATEWAY_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}
	token := os.Getenv("GHISEU_TOKEN")

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = cmdLogin(baseURL, args)
	case "tasks":
		err = cmdTasks(baseURL, token, args)
	case "claim":
		err = cmdClaim(baseURL, token, args)
	case "done":
		err = cmdDone(baseURL, token, args)
	case "cases":
		err = cmdCases(baseURL, token, args)
	case "advance":
		err = cmdAdvance(baseURL, token, args)
	case "console":
		err = cmdConsole(baseURL, token)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: ghiseu-operator <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  login <username>             Authenticate and print a token")
	fmt.Println("  tasks [status]               List review tasks (default: open)")
	fmt.Println("  claim <task-id>              Claim a task")
	fmt.Println("  done <task-id> [notes]       Complete a claimed task")
	fmt.Println("  cases [status]               List cases")
	fmt.Println("  advance <case-id> <status>   Move a case to a new status")
	fmt.Println("  console                      Interactive command console (REPL)")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  GHISEU_GATEWAY_URL   Gateway base URL (default: http://localhost:8090)")
	fmt.Println("  GHISEU_TOKEN         JWT bearer token (from 'login')")
}

func cmdLogin(baseURL string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ghiseu-operator login <username>")
	}
	username := args[0]

	fmt.Fprint(os.Stderr, "Password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")

	var out struct {
		Token string `json:"token"`
	}
	err = call(baseURL, "", http.MethodPost, "/api/operator/login",
		map[string]string{"username": username, "password": password}, &out)
	if err != nil {
		return err
	}

	color.Green("Authenticated.")
	fmt.Println()
	fmt.Println("export GHISEU_TOKEN=" + out.Token)
	return nil
}

type taskRow struct {
	ID        int64     `json:"id"`
	CaseID    string    `json:"case_id"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Assignee  string    `json:"assignee"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

func cmdTasks(baseURL, token string, args []string) error {
	status := "open"
	if len(args) > 0 {
		status = args[0]
	}

	var out struct {
		Tasks []taskRow `json:"tasks"`
	}
	path := "/api/tasks"
	if status != "all" {
		path += "?status=" + url.QueryEscape(status)
	}
	if err := call(baseURL, token, http.MethodGet, path, nil, &out); err != nil {
		return err
	}

	if len(out.Tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCASE\tKIND\tSTATUS\tASSIGNEE\tCREATED")
	for _, t := range out.Tasks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.CaseID, t.Kind, t.Status, t.Assignee, t.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func cmdClaim(baseURL, token string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ghiseu-operator claim <task-id>")
	}
	var out taskRow
	err := call(baseURL, token, http.MethodPost, "/api/tasks/"+args[0]+"/claim", map[string]string{}, &out)
	if err != nil {
		return err
	}
	color.Green("Task %d claimed (case %s).", out.ID, out.CaseID)
	fmt.Println()
	return nil
}

func cmdDone(baseURL, token string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: ghiseu-operator done <task-id> [notes]")
	}
	notes := strings.Join(args[1:], " ")
	var out taskRow
	err := call(baseURL, token, http.MethodPost, "/api/tasks/"+args[0]+"/complete",
		map[string]string{"notes": notes}, &out)
	if err != nil {
		return err
	}
	color.Green("Task %d completed (case %s).", out.ID, out.CaseID)
	fmt.Println()
	return nil
}

type caseRow struct {
	ID        string    `json:"id"`
	Program   string    `json:"program"`
	Subtype   string    `json:"subtype"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func cmdCases(baseURL, token string, args []string) error {
	path := "/api/cases"
	if len(args) > 0 {
		path += "?status=" + url.QueryEscape(args[0])
	}

	var out struct {
		Cases []caseRow `json:"cases"`
	}
	if err := call(baseURL, token, http.MethodGet, path, nil, &out); err != nil {
		return err
	}

	if len(out.Cases) == 0 {
		fmt.Println("No cases.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROGRAM\tSUBTYPE\tSTATUS\tCREATED")
	for _, c := range out.Cases {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Program, c.Subtype, c.Status, c.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func cmdAdvance(baseURL, token string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: ghiseu-operator advance <case-id> <status>")
	}
	caseID := strings.ToUpper(args[0])
	status := strings.ToUpper(args[1])

	raw, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPatch, baseURL+"/api/cases/"+caseID+"/status", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var out caseRow
	if err := doRequest(req, &out); err != nil {
		return err
	}
	color.Green("Case %s is now %s.", out.ID, out.Status)
	fmt.Println()
	return nil
}

// cmdConsole runs the chat-style command grammar against the gateway.
func cmdConsole(baseURL, token string) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Type 'help' for commands, 'exit' to quit.")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("ghiseu> ")
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		var out struct {
			Output string `json:"output"`
		}
		err = call(baseURL, token, http.MethodPost, "/api/operator/command",
			map[string]string{"text": line}, &out)
		if err != nil {
			color.Red("%v", err)
			continue
		}
		fmt.Println(out.Output)
	}
}

// call performs one JSON request against the gateway and decodes the
// response into out. API errors come back as their envelope message.
func call(baseURL, token, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return doRequest(req, out)
}

func doRequest(req *http.Request, out any) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Code != "" {
			return fmt.Errorf("%s: %s", envelope.Error.Code, envelope.Error.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
