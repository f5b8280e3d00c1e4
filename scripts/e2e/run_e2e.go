// Package main runs end-to-end conversation scenarios against a running API.
//
// Scenarios use the demo customers, seeded by default when ENV=development or
// when SEED_DEMO_DATA=true, and cover:
//   - FAQ answers without authentication
//   - Identify, verify and answer an account question
//   - Cancelling verification
//   - Lockout escalation with an agent claiming, replying and resolving
//
// Usage:
//
//	AGENT_JWT_SECRET=... API_BASE_URL=... go run scripts/e2e/run_e2e.go [scenario-name]
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/billing-support-ai/internal/auth"
	"github.com/wolfman30/billing-support-ai/internal/conversation"
	"github.com/wolfman30/billing-support-ai/internal/handoff"
	httpmiddleware "github.com/wolfman30/billing-support-ai/internal/http/middleware"
	"github.com/wolfman30/billing-support-ai/internal/session"
)

const (
	customerEmail = "jane.doe@example.com"
	customerSSN   = "1234"
	requestWait   = 60 * time.Second
)

var (
	apiBase    string
	agentToken string
	client     = &http.Client{Timeout: requestWait}
)

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed  int
	failed  int
	name    string
	session string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...interface{}) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

// say sends one customer message on the scenario's session.
func (t *T) say(text string) (conversation.Reply, bool) {
	fmt.Printf("    > %s\n", text)
	body, _ := json.Marshal(conversation.MessageRequest{SessionID: t.session, Message: text})
	var reply conversation.Reply
	if err := do(http.MethodPost, "/v1/messages", body, "", &reply); err != nil {
		t.fatalf("send %q: %v", text, err)
		return reply, false
	}
	t.session = reply.SessionID
	fmt.Printf("    < [%s] %s\n", reply.Route, reply.Text)
	return reply, true
}

func do(method, path string, body []byte, token string, out any) error {
	req, err := http.NewRequest(method, apiBase+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func agent(method, path string, payload any) error {
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}
	return do(method, path, body, agentToken, nil)
}

func signAgentToken(secret string) (string, error) {
	now := time.Now()
	claims := httpmiddleware.AgentClaims{
		Name: "E2E Agent",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "agent-e2e",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func scenarioFAQ(t *T) {
	reply, ok := t.say("How do I sign up for autopay?")
	if !ok {
		return
	}
	t.check("routed to faq", reply.Route == conversation.RouteFAQ)
	t.check("no authentication needed", reply.AuthState != auth.StateAuthenticated)
	t.check("mentions autopay", containsAny(reply.Text, "autopay", "automatic"))
}

func scenarioBalance(t *T) {
	reply, ok := t.say("What's my current balance?")
	if !ok {
		return
	}
	t.check("asks for identifier", reply.Route == conversation.RouteAuthPrompt)

	if reply, ok = t.say(customerEmail); !ok {
		return
	}
	t.check("asks for verification factor", reply.Route == conversation.RouteAuthPrompt && containsAny(reply.Text, "social security"))

	if reply, ok = t.say(customerSSN); !ok {
		return
	}
	t.check("answers account question", reply.Route == conversation.RouteAccountData)
	t.check("balance reported", strings.Contains(reply.Text, "$142.57"))
	t.check("session authenticated", reply.AuthState == auth.StateAuthenticated)

	var view conversation.SessionView
	if err := do(http.MethodGet, "/v1/sessions/"+t.session, nil, "", &view); err != nil {
		t.fatalf("fetch session: %v", err)
		return
	}
	t.check("history recorded", len(view.History) >= 6)
}

func scenarioCancel(t *T) {
	if _, ok := t.say("show me my last payment"); !ok {
		return
	}
	reply, ok := t.say("never mind")
	if !ok {
		return
	}
	t.check("verification cancelled", reply.Route == conversation.RouteAuthCancelled)

	if reply, ok = t.say("what payment methods do you accept?"); !ok {
		return
	}
	t.check("back to normal routing", reply.Route == conversation.RouteFAQ)
}

func scenarioLockout(t *T) {
	steps := []string{"why is my bill so high?", customerEmail, "0000", "1111"}
	for _, s := range steps {
		if _, ok := t.say(s); !ok {
			return
		}
	}
	reply, ok := t.say("2222")
	if !ok {
		return
	}
	t.check("escalated after lockout", reply.Route == conversation.RouteHandoff)
	t.check("ticket issued", reply.TicketID != "")
	if reply.TicketID == "" {
		return
	}
	ticketPath := "/agent/tickets/" + reply.TicketID

	var ticket handoff.Ticket
	if err := do(http.MethodGet, ticketPath, nil, agentToken, &ticket); err != nil {
		t.fatalf("fetch ticket: %v", err)
		return
	}
	t.check("ticket routed to account security", ticket.Department == "Account Security")
	t.check("ticket carries history", len(ticket.History) >= 5)

	if err := agent(http.MethodPost, ticketPath+"/claim", nil); err != nil {
		t.fatalf("claim: %v", err)
		return
	}
	if err := agent(http.MethodPost, ticketPath+"/responses", map[string]string{"content": "Hi Jane, I can help unlock your account."}); err != nil {
		t.fatalf("respond: %v", err)
		return
	}

	if reply, ok = t.say("hello?"); !ok {
		return
	}
	t.check("agent reply relayed", reply.From == session.RoleAgent && containsAny(reply.Text, "unlock"))
	t.check("human conversation active", reply.HandoffState == session.HandoffActive)

	if err := agent(http.MethodPost, ticketPath+"/resolve", map[string]string{"kind": string(handoff.ResolutionResolved), "notes": "unlocked"}); err != nil {
		t.fatalf("resolve: %v", err)
		return
	}
	if reply, ok = t.say("thanks!"); !ok {
		return
	}
	t.check("handoff cleared after resolution", reply.HandoffState == session.HandoffNone)
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	apiBase = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	secret := os.Getenv("AGENT_JWT_SECRET")
	if apiBase == "" || secret == "" {
		fmt.Fprintln(os.Stderr, "ERROR: API_BASE_URL and AGENT_JWT_SECRET required")
		os.Exit(1)
	}
	token, err := signAgentToken(secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: sign agent token: %v\n", err)
		os.Exit(1)
	}
	agentToken = token

	scenarios := []scenario{
		{"faq", scenarioFAQ},
		{"balance", scenarioBalance},
		{"cancel", scenarioCancel},
		{"lockout-handoff", scenarioLockout},
	}

	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	totalPassed := 0
	totalFailed := 0
	scenarioResults := make([]string, 0)

	for _, s := range scenarios {
		if filter != "" && s.Name != filter {
			continue
		}

		fmt.Printf("\n========================================\n")
		fmt.Printf("SCENARIO: %s\n", s.Name)
		fmt.Printf("========================================\n")

		t := &T{name: s.Name}
		s.Fn(t)

		totalPassed += t.passed
		totalFailed += t.failed

		status := "PASS"
		if t.failed > 0 {
			status = "FAIL"
		}
		scenarioResults = append(scenarioResults, fmt.Sprintf("  %s %s (%d passed, %d failed)", status, s.Name, t.passed, t.failed))
	}

	fmt.Printf("\n========================================\n")
	fmt.Println("SUMMARY")
	fmt.Printf("========================================\n")
	for _, r := range scenarioResults {
		fmt.Println(r)
	}
	fmt.Printf("\nTotal: %d passed, %d failed\n", totalPassed, totalFailed)

	if totalFailed > 0 {
		os.Exit(1)
	}
}
