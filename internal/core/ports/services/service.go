package services

// ServiceContainer holds instances of all the ledger services. This is the
// entry point the event-ingestion layer wires against.
type ServiceContainer struct {
	Payment      PaymentSvcFacade
	Balance      BalanceSvcFacade
	Refund       RefundSvcFacade
	ProcessorFee ProcessorFeeSvcFacade
}
