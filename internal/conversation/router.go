package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/billing-support-ai/internal/auth"
	"github.com/wolfman30/billing-support-ai/internal/handoff"
	"github.com/wolfman30/billing-support-ai/internal/observability/metrics"
	"github.com/wolfman30/billing-support-ai/internal/providers"
	"github.com/wolfman30/billing-support-ai/internal/session"
	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

// Route names reported on every reply and counted in metrics.
const (
	RouteFAQ             = "faq"
	RouteAccountData     = "account_data"
	RouteAuthPrompt      = "auth_prompt"
	RouteAuthCancelled   = "auth_cancelled"
	RouteHandoff         = "handoff"
	RouteHandoffRelay    = "handoff_relay"
	RouteHandoffClosed   = "handoff_closed"
	RouteHandoffCancel   = "handoff_cancelled"
	RouteClarification   = "clarification"
	defaultHistoryWindow = 10
	defaultLowConfidence = 0.3
	defaultWaitTimeout   = 20 * time.Second
)

// ErrEmptyMessage is returned for blank customer input.
var ErrEmptyMessage = errors.New("conversation: empty message")

// Reply is what the customer sees after one turn.
type Reply struct {
	SessionID    string               `json:"session_id"`
	Text         string               `json:"text"`
	Route        string               `json:"route"`
	From         string               `json:"from"`
	AuthState    auth.State           `json:"auth_state"`
	HandoffState session.HandoffState `json:"handoff_state"`
	TicketID     string               `json:"ticket_id,omitempty"`
	// FollowUp is set on the turn that carries an agent's resolution.
	FollowUp handoff.FollowUp `json:"follow_up,omitempty"`
}

// Deps are the collaborators a Router cannot run without.
type Deps struct {
	Sessions   *session.Manager
	Auth       *auth.Machine
	Tickets    *handoff.Manager
	Classifier providers.Classifier
	FAQ        providers.FAQResponder
	Account    providers.AccountResponder
	Summarizer providers.Summarizer
}

// Option configures a Router.
type Option func(*Router)

// WithHistoryWindow sets how many trailing messages the classifier sees.
func WithHistoryWindow(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.historyWindow = n
		}
	}
}

// WithLowConfidence sets the out-of-scope confidence below which the
// customer is handed to a human.
func WithLowConfidence(threshold float64) Option {
	return func(r *Router) { r.lowConfidence = threshold }
}

// WithWaitTimeout bounds how long a turn waits for a human agent.
func WithWaitTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.waitTimeout = d
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(sm *metrics.SupportMetrics) Option {
	return func(r *Router) { r.metrics = sm }
}

func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

// Router decides, for every customer message, which component answers it.
type Router struct {
	sessions   *session.Manager
	auth       *auth.Machine
	tickets    *handoff.Manager
	classifier providers.Classifier
	faq        providers.FAQResponder
	account    providers.AccountResponder
	summarizer providers.Summarizer
	fallback   providers.Summarizer

	historyWindow int
	lowConfidence float64
	waitTimeout   time.Duration

	logger  *logging.Logger
	metrics *metrics.SupportMetrics
	now     func() time.Time
}

// NewRouter validates deps and applies options.
func NewRouter(deps Deps, opts ...Option) (*Router, error) {
	switch {
	case deps.Sessions == nil:
		return nil, errors.New("conversation: session manager required")
	case deps.Auth == nil:
		return nil, errors.New("conversation: auth machine required")
	case deps.Tickets == nil:
		return nil, errors.New("conversation: ticket manager required")
	case deps.Classifier == nil:
		return nil, errors.New("conversation: classifier required")
	case deps.FAQ == nil:
		return nil, errors.New("conversation: faq responder required")
	case deps.Account == nil:
		return nil, errors.New("conversation: account responder required")
	}
	r := &Router{
		sessions:      deps.Sessions,
		auth:          deps.Auth,
		tickets:       deps.Tickets,
		classifier:    deps.Classifier,
		faq:           deps.FAQ,
		account:       deps.Account,
		summarizer:    deps.Summarizer,
		fallback:      providers.NewTemplateSummarizer(),
		historyWindow: defaultHistoryWindow,
		lowConfidence: defaultLowConfidence,
		waitTimeout:   defaultWaitTimeout,
		logger:        logging.Default(),
		now:           time.Now,
	}
	if r.summarizer == nil {
		r.summarizer = r.fallback
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// outcome is the result of routing one message inside a locked turn.
type outcome struct {
	text       string
	route      string
	from       string
	followUp   handoff.FollowUp
	redispatch string
}

// Handle processes one customer message. An empty sessionID starts a new
// conversation. Turns for the same session run one at a time.
func (r *Router) Handle(ctx context.Context, sessionID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = session.NewID()
	}

	unlock, err := r.sessions.Lock(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("conversation: lock session: %w", err)
	}
	defer unlock()

	sess, err := r.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}

	sess.Append(session.RoleUser, message, r.now().UTC())
	out, routeErr := r.dispatch(ctx, sess, message)
	if routeErr == nil {
		sess.Append(out.from, out.text, r.now().UTC())
	}
	if err := r.sessions.Save(ctx, sess); err != nil {
		if routeErr != nil {
			return nil, routeErr
		}
		return nil, fmt.Errorf("conversation: save session: %w", err)
	}
	if routeErr != nil {
		r.logger.Error("turn failed", "session_id", sessionID, "error", routeErr)
		return nil, routeErr
	}

	r.metrics.ObserveRoute(out.route)
	r.logger.Info("turn processed",
		"session_id", sessionID,
		"route", out.route,
		"auth_state", string(sess.Auth.State),
		"handoff_state", string(sess.HandoffState),
	)
	return &Reply{
		SessionID:    sessionID,
		Text:         out.text,
		Route:        out.route,
		From:         out.from,
		AuthState:    sess.Auth.State,
		HandoffState: sess.HandoffState,
		TicketID:     sess.HandoffTicketID,
		FollowUp:     out.followUp,
	}, nil
}

// dispatch routes the message and performs at most one re-dispatch of a
// query that was parked while the customer authenticated.
func (r *Router) dispatch(ctx context.Context, sess *session.Session, message string) (outcome, error) {
	out, err := r.route(ctx, sess, message)
	if err != nil || out.redispatch == "" {
		return out, err
	}
	next, err := r.classifyAndRoute(ctx, sess, out.redispatch)
	if err != nil {
		return next, err
	}
	next.text = join(out.text, next.text)
	return next, nil
}

func (r *Router) route(ctx context.Context, sess *session.Session, message string) (outcome, error) {
	var preface outcome
	if sess.InHandoff() {
		out, handled, err := r.continueHandoff(ctx, sess, message)
		if err != nil || handled {
			return out, err
		}
		preface = out
	}

	var (
		out outcome
		err error
	)
	if sess.PendingQuery != "" && sess.Auth.InFlow() {
		out, err = r.continueAuth(ctx, sess, message)
	} else {
		out, err = r.classifyAndRoute(ctx, sess, message)
	}
	if err == nil {
		out.text = join(preface.text, out.text)
		if out.followUp == "" {
			out.followUp = preface.followUp
		}
	}
	return out, err
}
