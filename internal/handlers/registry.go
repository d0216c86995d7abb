package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	RequestHandler *RequestHandler
	VerdictHandler *VerdictHandler
	CreditHandler  *CreditHandler
	HealthHandler  *HealthHandler
}
