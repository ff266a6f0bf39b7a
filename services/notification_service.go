package services

import (
	"context"
	"fmt"
	"log"

	"github.com/Ash-333/nepse-data/services/expo"
)

// TokenStore is the subscriber store consumed by the dispatcher
type TokenStore interface {
	SaveToken(ctx context.Context, token string, userID *uint, platform string) error
	RemoveToken(ctx context.Context, token string) error
	ListTokens(ctx context.Context) ([]string, error)
	ListTokensForUser(ctx context.Context, userID uint) ([]string, error)
}

// PushSender sends one provider-sized chunk of messages
type PushSender interface {
	SendChunk(ctx context.Context, messages []expo.Message) ([]expo.Ticket, error)
}

// DispatchReport summarizes one dispatch call
type DispatchReport struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Pruned    int `json:"pruned"`
	Failed    int `json:"failed"`
}

// NotificationService fans a message out to device tokens in provider-sized
// chunks and prunes tokens the provider reports as permanently gone.
type NotificationService struct {
	sender PushSender
	tokens TokenStore
}

// NewNotificationService wires the push sender and the subscriber store
func NewNotificationService(sender PushSender, tokens TokenStore) *NotificationService {
	return &NotificationService{
		sender: sender,
		tokens: tokens,
	}
}

// Dispatch sends title/body/data to the given tokens. Tokens that are not
// syntactically valid Expo tokens are dropped before sending. Per-token
// delivery failures never fail the call; a token reported as permanently
// unregistered is removed from the subscriber store. An error is returned
// only when no chunk could reach the provider at all.
func (s *NotificationService) Dispatch(ctx context.Context, tokens []string, title, body string, data map[string]string) (DispatchReport, error) {
	var report DispatchReport

	var messages []expo.Message
	seen := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		if seen[token] || !expo.IsExpoPushToken(token) {
			continue
		}
		seen[token] = true
		messages = append(messages, expo.Message{
			To:    token,
			Title: title,
			Body:  body,
			Sound: "default",
			Data:  data,
		})
	}
	if len(messages) == 0 {
		log.Printf("No valid push tokens for %q", title)
		return report, nil
	}
	report.Attempted = len(messages)

	chunks := expo.Chunk(messages, expo.MaxChunkSize)
	reached := false

	for _, chunk := range chunks {
		tickets, err := s.sender.SendChunk(ctx, chunk)
		if err != nil {
			// The whole chunk never reached the provider: its tokens are
			// neither delivered nor pruned
			log.Printf("Push chunk of %d failed: %v", len(chunk), err)
			report.Failed += len(chunk)
			continue
		}
		reached = true

		for i, ticket := range tickets {
			switch {
			case ticket.OK():
				report.Delivered++
			case ticket.PermanentFailure():
				token := chunk[i].To
				if err := s.tokens.RemoveToken(ctx, token); err != nil {
					log.Printf("Failed to prune token: %v", err)
				} else {
					report.Pruned++
				}
			default:
				// Transient failure; keep the token
				report.Failed++
				log.Printf("Push not delivered (%s): %s", ticketError(ticket), ticket.Message)
			}
		}
	}

	if !reached {
		return report, fmt.Errorf("push provider unreachable: all %d chunks failed", len(chunks))
	}

	log.Printf("Dispatched %q: attempted=%d delivered=%d pruned=%d failed=%d",
		title, report.Attempted, report.Delivered, report.Pruned, report.Failed)
	return report, nil
}

// Broadcast dispatches to every registered token
func (s *NotificationService) Broadcast(ctx context.Context, title, body string, data map[string]string) (DispatchReport, error) {
	tokens, err := s.tokens.ListTokens(ctx)
	if err != nil {
		return DispatchReport{}, fmt.Errorf("list tokens: %w", err)
	}
	return s.Dispatch(ctx, tokens, title, body, data)
}

// NotifyUser dispatches to the tokens of a single user
func (s *NotificationService) NotifyUser(ctx context.Context, userID uint, title, body string, data map[string]string) (DispatchReport, error) {
	tokens, err := s.tokens.ListTokensForUser(ctx, userID)
	if err != nil {
		return DispatchReport{}, fmt.Errorf("list user tokens: %w", err)
	}
	return s.Dispatch(ctx, tokens, title, body, data)
}

func ticketError(t expo.Ticket) string {
	if t.Details != nil && t.Details.Error != "" {
		return t.Details.Error
	}
	return t.Status
}
