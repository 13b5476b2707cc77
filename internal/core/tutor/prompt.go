package tutor

import (
	"fmt"

	"github.com/jinford/ai-tutor/internal/core/session"
)

// Persona は全ての回答生成に付与するチューター人格
const Persona = "Respond in a format understandable by the eleven_multilingual_v2 model. " +
	"You are a world-class tutor with PhD-level knowledge. " +
	"Teach intuitively and clearly: start with a concise answer, then explain step-by-step in simple language. " +
	"Use examples or analogies when helpful. Prefer bullets and short paragraphs."

// BuildAskMessages は単発質問用の生成リクエストを組み立てる
func BuildAskMessages(question, context string) []Message {
	return []Message{
		{Role: MessageRoleSystem, Content: Persona + "\nUse the provided context to answer the question."},
		{Role: MessageRoleUser, Content: fmt.Sprintf(
			"Context:\n%s\n\nQuestion: %s\n\nAnswer as a patient, intuitive tutor. "+
				"Keep it clear and step-by-step, and include an example if useful.",
			context, question,
		)},
	}
}

// BuildChatMessages は会話用の生成リクエストを組み立てる。
// 過去の履歴は時系列順に並べ、最後に今回のメッセージと検索コンテキストを置く
func BuildChatMessages(transcript []session.Turn, context, message string) []Message {
	messages := make([]Message, 0, len(transcript)+2)
	messages = append(messages, Message{Role: MessageRoleSystem, Content: Persona})

	for _, turn := range transcript {
		role := MessageRoleUser
		if turn.Role == session.RoleAssistant {
			role = MessageRoleAssistant
		}
		messages = append(messages, Message{Role: role, Content: turn.Content})
	}

	messages = append(messages, Message{Role: MessageRoleUser, Content: fmt.Sprintf(
		"Use this (optional) context if helpful:\n%s\n\nNow answer the user's message:\n%s",
		context, message,
	)})
	return messages
}
