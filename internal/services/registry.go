package services

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	CreditService    CreditService
	RequestService   RequestService
	VerdictService   VerdictService
	ConsensusService ConsensusService
	RoutingService   RoutingService
}
