package blend

import (
	"context"
	"strings"

	"github.com/npezzotti/blend/internal/types"
)

// PostMessage appends a chat message from the caller and echoes it to the
// other members of the room. Messages that mention the assistant trigger
// also get an assistant reply once it is available.
func (s *Service) PostMessage(ctx context.Context, caller Caller, roomId, text string) (types.ChatMessage, error) {
	in := messageInput{Message: strings.TrimSpace(text)}
	if err := validateStruct(in); err != nil {
		return types.ChatMessage{}, err
	}

	return exec(ctx, s, caller, roomId, "chat-message", func(ctx context.Context) (types.ChatMessage, error) {
		if _, err := s.loadMember(ctx, roomId, caller.User.Id); err != nil {
			return types.ChatMessage{}, err
		}

		msg, err := s.db.AppendChatMessage(ctx, roomId, types.ChatMessage{
			Sender:  caller.User.DisplayName(),
			Message: in.Message,
		})
		if err != nil {
			return types.ChatMessage{}, err
		}

		s.router.Broadcast(roomId, chatEvent(roomId, msg), caller.Conn)

		if s.mentionsAssistant(in.Message) {
			s.askAssistant(roomId, in.Message)
		}

		return msg, nil
	})
}

func (s *Service) mentionsAssistant(text string) bool {
	return s.assistant != nil && strings.Contains(strings.ToLower(text), s.opts.AssistantTrigger)
}

// assistantPrompt strips the first trigger mention from text.
func (s *Service) assistantPrompt(text string) string {
	i := strings.Index(strings.ToLower(text), s.opts.AssistantTrigger)
	if i < 0 {
		return text
	}

	prompt := strings.TrimSpace(text[:i] + text[i+len(s.opts.AssistantTrigger):])
	if prompt == "" {
		return text
	}
	return prompt
}

// askAssistant requests a reply off the room worker and appends it through
// the worker when it arrives. Failures are logged and produce no message.
func (s *Service) askAssistant(roomId, text string) {
	prompt := s.assistantPrompt(text)
	log := s.log.With().Str("room_id", roomId).Logger()

	started := s.goBackground(func() {
		reply, err := s.assistant.Generate(context.Background(), prompt)
		if err != nil {
			log.Warn().Err(err).Msg("assistant request failed")
			return
		}

		_, err = s.submit(context.Background(), roomId, "assistant-reply", false, func(ctx context.Context) (any, error) {
			msg, err := s.db.AppendChatMessage(ctx, roomId, types.ChatMessage{
				Sender:  s.opts.AssistantSender,
				Message: reply,
			})
			if err != nil {
				return nil, err
			}

			s.router.Broadcast(roomId, chatEvent(roomId, msg), nil)
			return msg, nil
		})
		if err != nil {
			log.Warn().Err(err).Msg("could not queue assistant reply")
		}
	})
	if !started {
		log.Debug().Msg("shutting down, assistant request skipped")
	}
}
