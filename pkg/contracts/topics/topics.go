package topics

const (
	// Kafka: resultado do sorteio
	DrawCompleted = "lottery_draw_completed"

	// Redis Pub/Sub: broadcast do resultado
	DrawBroadcastChannel = "lottery_draw_broadcast"
)
