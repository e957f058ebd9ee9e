package events

import "time"

// Evento publicado após o sorteio, uma única vez por execução do servidor.
type DrawCompleted struct {
	DrawID    string           `json:"draw_id"`
	Agencies  int              `json:"agencies"`
	TotalBets int              `json:"total_bets"`
	Winners   map[int][]string `json:"winners"` // agency -> documentos ganhadores
	DrawnAt   time.Time        `json:"drawn_at"`
}
