package turns

import "fmt"

// DefaultMaxTurns сколько пар user/assistant держим по умолчанию.
const DefaultMaxTurns = 2

// Speaker автор реплики.
type Speaker int

const (
	User Speaker = iota + 1
	Assistant
)

func (s Speaker) String() string {
	switch s {
	case User:
		return "user"
	case Assistant:
		return "assistant"
	default:
		return fmt.Sprintf("speaker(%d)", int(s))
	}
}

// MarshalText нужен для JSON-снимков в UI.
func (s Speaker) MarshalText() ([]byte, error) {
	switch s {
	case User, Assistant:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("turns: unknown speaker %d", int(s))
	}
}

func (s *Speaker) UnmarshalText(b []byte) error {
	switch string(b) {
	case "user":
		*s = User
	case "assistant":
		*s = Assistant
	default:
		return fmt.Errorf("turns: unknown speaker %q", b)
	}
	return nil
}

// Turn одна реплика диалога. Значение, не меняется после создания.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Buffer буфер последних реплик фиксированной ёмкости (2 * maxTurns).
// При переполнении удаляются самые старые реплики (FIFO).
// Не потокобезопасен: доступ сериализует владелец (сессия).
type Buffer struct {
	maxTurns int
	ring     []Turn // ёмкость limit+1: запись всегда успевает до truncate
	head     int
	size     int
}

// New создаёт буфер. maxTurns <= 0 заменяется на DefaultMaxTurns.
func New(maxTurns int) *Buffer {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Buffer{maxTurns: maxTurns, ring: make([]Turn, 2*maxTurns+1)}
}

// AddUser добавляет реплику пользователя. Пустой текст не отклоняется, это проверяет вызывающий.
func (b *Buffer) AddUser(text string) { b.add(Turn{Speaker: User, Text: text}) }

// AddAssistant добавляет реплику ассистента, в том числе текст ошибки вызова.
func (b *Buffer) AddAssistant(text string) { b.add(Turn{Speaker: Assistant, Text: text}) }

// Messages возвращает копию реплик в порядке добавления.
func (b *Buffer) Messages() []Turn {
	out := make([]Turn, b.size)
	for i := range b.size {
		out[i] = b.ring[(b.head+i)%len(b.ring)]
	}
	return out
}

func (b *Buffer) Len() int { return b.size }

func (b *Buffer) MaxTurns() int { return b.maxTurns }

// Limit максимальное число хранимых реплик.
func (b *Buffer) Limit() int { return 2 * b.maxTurns }

func (b *Buffer) add(t Turn) {
	b.ring[(b.head+b.size)%len(b.ring)] = t
	b.size++
	b.truncate()
}

func (b *Buffer) truncate() {
	for b.size > b.Limit() {
		b.ring[b.head] = Turn{}
		b.head = (b.head + 1) % len(b.ring)
		b.size--
	}
}
