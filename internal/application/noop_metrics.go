package application

type noopMetrics struct{}

func (noopMetrics) Install(string)                     {}
func (noopMetrics) Webhook(string, string)             {}
func (noopMetrics) WebhookRegistration(string, error)  {}
func (noopMetrics) UpstreamCall(string, string, error) {}
func (noopMetrics) VideoTaskFinished(string)           {}
