package config

// AMQPConfig controls the circulation event publisher and the log consumer.
// Publishing is off unless RABBITMQ_URL is set.
type AMQPConfig struct {
    URL             string
    Queue           string
    PublishEnabled  bool
    ConsumerEnabled bool
    LogDir          string
}

func LoadAMQPConfig() AMQPConfig {
    cfg := AMQPConfig{
        URL:             envStr("RABBITMQ_URL", ""),
        Queue:           envStr("AMQP_QUEUE", "circulation.events"),
        PublishEnabled:  envBool("AMQP_PUBLISH_ENABLED", true),
        ConsumerEnabled: envBool("AMQP_CONSUMER_ENABLED", false),
        LogDir:          envStr("EVENT_LOG_DIR", "logs"),
    }
    if cfg.URL == "" {
        cfg.PublishEnabled = false
        cfg.ConsumerEnabled = false
    }
    return cfg
}
