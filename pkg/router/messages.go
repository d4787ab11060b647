package router

// DefaultPhone is the support line quoted in hand-off messages.
const DefaultPhone = "+7 (800) 700-80-39"

// Messages are the fixed texts the router replies with.
type Messages struct {
	// System is the system prompt sent with every generation request.
	System string `json:"system"`

	// Escalation answers queries the bot is not confident about.
	Escalation string `json:"escalation"`

	// NoContext answers queries with no supporting documents.
	NoContext string `json:"no_context"`

	// Fallback answers when generation fails.
	Fallback string `json:"fallback"`
}

// DefaultMessages returns the Russian texts with phone as the contact number.
func DefaultMessages(phone string) Messages {
	if phone == "" {
		phone = DefaultPhone
	}
	return Messages{
		System: "Вы — эксперт по смазочным материалам ECOFES. Отвечайте кратко, профессионально и на русском языке. " +
			"Если не знаете — скажите, что уточните и свяжетесь.",
		Escalation: "Этот вопрос лучше обсудить со специалистом. Пожалуйста, свяжитесь с менеджером: " + phone,
		NoContext:  "К сожалению, не нашёл информации по вашему вопросу. Пожалуйста, свяжитесь с менеджером: " + phone,
		Fallback:   "Произошла ошибка при обработке запроса. Пожалуйста, попробуйте позже или свяжитесь с менеджером: " + phone,
	}
}

// DefaultHedges are answer fragments that mean the model could not answer.
var DefaultHedges = []string{
	"не знаю",
	"нет информации",
	"нет данных",
	"уточню",
	"уточним",
	"i don't know",
	"i do not know",
	"i have no information",
}
