// Package textloop drives a text-mode negotiation: it reads warehouse
// utterances, evaluates any offered time and produces the agent's reply.
package textloop

import (
	"context"
	"fmt"

	"github.com/iwvelando/dock-negotiator/internal/decision"
	"github.com/iwvelando/dock-negotiator/internal/session"
	"github.com/iwvelando/dock-negotiator/pkg/timeofday"
	"go.uber.org/zap"
)

// Reply is the agent's response to one utterance.
type Reply struct {
	Text      string           `json:"text"`
	Phrase    string           `json:"phrase,omitempty"`
	Decision  *decision.Result `json:"decision,omitempty"`
	Pushbacks int              `json:"pushbacks"`
	Agreed    bool             `json:"agreed"`
}

// Negotiator answers warehouse utterances for one appointment. The base
// request carries everything except the proposed time.
type Negotiator struct {
	logger *zap.Logger
	store  session.Store
	base   decision.Request
	opts   decision.Options
}

// New creates a Negotiator.
func New(logger *zap.Logger, store session.Store, base decision.Request, opts decision.Options) *Negotiator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Negotiator{logger: logger, store: store, base: base, opts: opts}
}

// Greeting is the agent's opening line.
func (n *Negotiator) Greeting() string {
	original, ok := timeofday.ParseTimeToMinutes(n.base.OriginalAppointment)
	if !ok {
		return "Hi, I'm calling about rescheduling a dock appointment."
	}
	at := timeofday.FormatTimeForSpeech(original)
	if n.base.DelayMinutes > 0 {
		eta := timeofday.FormatTimeForSpeech(timeofday.AddMinutesToTime(original, n.base.DelayMinutes))
		return fmt.Sprintf("Hi, I'm calling about our %s appointment. Our driver is running late and should arrive around %s. What's the earliest time you could take us?", at, eta)
	}
	return fmt.Sprintf("Hi, I'm calling about our %s appointment. Could we find a new time?", at)
}

// Respond records the utterance, evaluates the first time it mentions and
// returns the agent's reply. Counter-offers increment the call's pushback
// count.
func (n *Negotiator) Respond(ctx context.Context, callID, utterance string) (Reply, error) {
	log := n.logger.With(zap.String("op", "textloop.Respond"), zap.String("callId", callID))

	if err := n.store.AppendTranscript(ctx, callID, session.Entry{Speaker: session.SpeakerWarehouse, Text: utterance}); err != nil {
		return Reply{}, fmt.Errorf("failed to record utterance: %w", err)
	}

	offered, phrase, ok := timeofday.ExtractTime(utterance)
	if !ok {
		log.Debug("no time found in utterance", zap.String("utterance", utterance))
		reply := Reply{Text: "Sorry, I didn't catch a time. What time could you take us?"}
		return n.record(ctx, callID, reply)
	}

	state, err := n.store.Get(ctx, callID)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to load call state: %w", err)
	}

	req := n.base
	req.ProposedTime = timeofday.MinutesToTime(offered)
	req.PriorPushbacks = state.Pushbacks
	req.CallID = callID
	result := decision.EvaluateOffer(n.logger, req, n.opts)

	reply := Reply{
		Phrase:    phrase,
		Decision:  &result,
		Pushbacks: state.Pushbacks,
		Agreed:    result.Acceptable,
	}
	at := timeofday.FormatTimeForSpeech(offered)

	switch {
	case result.Acceptable:
		reply.Text = fmt.Sprintf("%s works for us. Please book us in for %s.", at, at)
	case result.SuggestedCounterOffer != nil:
		count, err := n.store.IncrementPushbacks(ctx, callID)
		if err != nil {
			return Reply{}, fmt.Errorf("failed to record pushback: %w", err)
		}
		reply.Pushbacks = count
		reply.Text = fmt.Sprintf("%s is tough for us. Could you do %s instead?", at, *result.SuggestedCounterOffer)
	case result.HOS != nil && result.HOS.RequiresNextShift:
		reply.Text = fmt.Sprintf("Unfortunately our driver can't legally make %s today. Do you have anything tomorrow?", at)
	default:
		reply.Text = fmt.Sprintf("Unfortunately %s doesn't work for us. Is there anything earlier?", at)
	}

	log.Info("negotiation reply",
		zap.String("phrase", phrase),
		zap.Bool("agreed", reply.Agreed),
		zap.Int("pushbacks", reply.Pushbacks))
	return n.record(ctx, callID, reply)
}

func (n *Negotiator) record(ctx context.Context, callID string, reply Reply) (Reply, error) {
	if err := n.store.AppendTranscript(ctx, callID, session.Entry{Speaker: session.SpeakerAgent, Text: reply.Text}); err != nil {
		return Reply{}, fmt.Errorf("failed to record reply: %w", err)
	}
	return reply, nil
}
