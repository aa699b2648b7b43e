package prompt

import (
	"FruitBot/internal/service/turns"
	"fmt"
	"strings"
)

// Role роль сообщения в запросе к модели.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultPersona системная инструкция по умолчанию.
const DefaultPersona = "You are FruitBot, a friendly assistant specialised in fruit. " +
	"Answer briefly and accurately, and when it fits include notes on taste, " +
	"how to store the fruit and how to pick a good one when buying."

// Message одно сообщение запроса.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Assembler собирает список сообщений: персона + реплики буфера.
type Assembler struct {
	persona string
}

// New создаёт сборщик. Пустая персона заменяется на DefaultPersona.
func New(persona string) *Assembler {
	if strings.TrimSpace(persona) == "" {
		persona = DefaultPersona
	}
	return &Assembler{persona: persona}
}

func (a *Assembler) Persona() string { return a.persona }

// Assemble возвращает системное сообщение и по одному сообщению на каждую реплику, в том же порядке.
func (a *Assembler) Assemble(history []turns.Turn) []Message {
	msgs := make([]Message, 0, 1+len(history))
	msgs = append(msgs, Message{Role: RoleSystem, Content: a.persona})
	for _, t := range history {
		msgs = append(msgs, Message{Role: RoleOf(t.Speaker), Content: t.Text})
	}
	return msgs
}

// RoleOf переводит автора реплики в роль сообщения.
// Неизвестный автор означает ошибку программиста, поэтому panic.
func RoleOf(s turns.Speaker) Role {
	switch s {
	case turns.User:
		return RoleUser
	case turns.Assistant:
		return RoleAssistant
	default:
		panic(fmt.Sprintf("prompt: unexpected speaker %v", s))
	}
}
