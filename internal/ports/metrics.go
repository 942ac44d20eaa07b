package ports

// MetricsRecorder receives application events worth counting.
type MetricsRecorder interface {
	Install(result string)
	Webhook(topic, result string)
	WebhookRegistration(topic string, err error)
	UpstreamCall(service, operation string, err error)
	VideoTaskFinished(state string)
}
