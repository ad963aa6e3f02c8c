package services

import (
	portsrepo "github.com/finbase/payment-ledger/internal/core/ports/repositories"
	portssvc "github.com/finbase/payment-ledger/internal/core/ports/services"
)

// NewServiceContainer wires all ledger services with their dependencies.
// publisher may be nil when no event transport is configured.
func NewServiceContainer(
	repos portsrepo.RepositoryProvider,
	processorClient portssvc.ProcessorClient,
	publisher portssvc.EventPublisher,
) *portssvc.ServiceContainer {
	feeSvc := NewProcessorFeeService(processorClient)
	balanceSvc := NewBalanceService(repos.TransactionRepo)
	paymentSvc := NewPaymentService(repos.TransactionRepo, processorClient, feeSvc, publisher)
	refundSvc := NewRefundService(repos.TransactionRepo, balanceSvc, feeSvc, publisher)

	return &portssvc.ServiceContainer{
		Payment:      paymentSvc,
		Balance:      balanceSvc,
		Refund:       refundSvc,
		ProcessorFee: feeSvc,
	}
}
