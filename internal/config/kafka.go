package config

type KafkaConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Brokers         []string `yaml:"brokers"`
	RideEventsTopic string   `yaml:"ride_events_topic"`
}

func loadKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Enabled:         getEnvAsBool("KAFKA_ENABLED", false),
		Brokers:         getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		RideEventsTopic: getEnv("KAFKA_RIDE_EVENTS_TOPIC", "ride-events"),
	}
}
