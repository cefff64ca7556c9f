package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/marketplace/internal/escrow/domain"
	"github.com/wyfcoding/marketplace/pkg/metrics"
)

// SettingsProvider 提供平台级佣金费率（后台可调）
type SettingsProvider interface {
	CommissionRate(ctx context.Context) decimal.Decimal
}

// FixedRate 固定费率的 SettingsProvider
type FixedRate struct {
	Rate decimal.Decimal
}

func (f FixedRate) CommissionRate(context.Context) decimal.Decimal { return f.Rate }

// EscrowService 托管交易应用服务。
// 所有迁移走 读取 -> 领域校验 -> 条件更新 三步：校验给出精确的前置条件错误，
// 条件更新保证并发下恰有一个赢家。支付网关只在充值与退款两处被调用，
// 且都在状态写入之前，失败时交易停在原状态。
type EscrowService struct {
	repo      domain.EscrowRepository
	publisher domain.EventPublisher
	gateway   domain.PaymentGateway
	notifier  domain.Notifier
	settings  SettingsProvider
	metrics   *metrics.Metrics
}

func NewEscrowService(
	repo domain.EscrowRepository,
	publisher domain.EventPublisher,
	gateway domain.PaymentGateway,
	notifier domain.Notifier,
	settings SettingsProvider,
	m *metrics.Metrics,
) *EscrowService {
	return &EscrowService{
		repo:      repo,
		publisher: publisher,
		gateway:   gateway,
		notifier:  notifier,
		settings:  settings,
		metrics:   m,
	}
}

// CreateEscrow 创建托管交易，佣金在此刻按当前平台费率一次性定价
func (s *EscrowService) CreateEscrow(ctx context.Context, cmd CreateEscrowCommand) (*EscrowDTO, error) {
	rate := s.settings.CommissionRate(ctx)
	transactionID := fmt.Sprintf("ET-%d", idgen.GenID())

	tx, err := domain.NewEscrowTransaction(transactionID, cmd.BuyerID, cmd.SellerID, cmd.ListingID, cmd.Amount, cmd.Currency, rate)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Save(txCtx, tx); err != nil {
			return err
		}
		return s.publisher.PublishInTx(ctx, contextx.GetTx(txCtx), domain.EscrowCreatedEventType, tx.TransactionID, domain.EscrowCreatedEvent{
			TransactionID: tx.TransactionID,
			BuyerID:       tx.BuyerID,
			SellerID:      tx.SellerID,
			ListingID:     tx.ListingID,
			Amount:        tx.Amount,
			Currency:      tx.Currency,
			OccurredOn:    time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.countTransition("create")
	s.notify(ctx, tx.SellerID, domain.EscrowCreatedEventType, tx)
	return toDTO(tx), nil
}

// FundEscrow 买家付款入托管。先扣款后迁移：网关失败时交易保持 created。
func (s *EscrowService) FundEscrow(ctx context.Context, cmd FundEscrowCommand) (*EscrowDTO, error) {
	tx, err := s.load(ctx, cmd.TransactionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := tx.Fund("", now); err != nil {
		return nil, err
	}

	// 扣款以 transaction_id 为幂等键：并发 Fund 可能各自到达网关，
	// 重复扣款由网关按该键去重，落库侧由下面的条件写裁决唯一赢家。
	receipt, err := s.gateway.Charge(ctx, tx.Amount, tx.Currency, tx.TransactionID)
	if err != nil {
		logging.Error(ctx, "escrow charge failed", "transaction_id", tx.TransactionID, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
	}
	tx.PaymentReference = receipt.Reference

	patch := domain.StatusPatch{
		Status:           domain.StatusFunded,
		PaymentReference: receipt.Reference,
		FundedAt:         &now,
	}
	if err := s.applyTransition(ctx, tx, domain.StatusCreated, patch, "fund"); err != nil {
		return nil, err
	}

	s.publishStatusChanged(ctx, tx, domain.StatusCreated, domain.EscrowFundedEventType)
	s.notify(ctx, tx.SellerID, domain.EscrowFundedEventType, tx)
	return toDTO(tx), nil
}

// MarkShipped 卖家发货
func (s *EscrowService) MarkShipped(ctx context.Context, cmd ShipEscrowCommand) (*EscrowDTO, error) {
	tx, err := s.load(ctx, cmd.TransactionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := tx.MarkShipped(cmd.TrackingRef, now); err != nil {
		return nil, err
	}

	patch := domain.StatusPatch{
		Status:      domain.StatusShipped,
		TrackingRef: cmd.TrackingRef,
		ShippedAt:   &now,
	}
	if err := s.applyTransition(ctx, tx, domain.StatusFunded, patch, "ship"); err != nil {
		return nil, err
	}

	s.publishStatusChanged(ctx, tx, domain.StatusFunded, domain.EscrowShippedEventType)
	s.notify(ctx, tx.BuyerID, domain.EscrowShippedEventType, tx)
	return toDTO(tx), nil
}

// MarkDelivered 买家确认收货
func (s *EscrowService) MarkDelivered(ctx context.Context, transactionID string) (*EscrowDTO, error) {
	tx, err := s.load(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := tx.MarkDelivered(now); err != nil {
		return nil, err
	}

	patch := domain.StatusPatch{
		Status:      domain.StatusDelivered,
		DeliveredAt: &now,
	}
	if err := s.applyTransition(ctx, tx, domain.StatusShipped, patch, "deliver"); err != nil {
		return nil, err
	}

	s.publishStatusChanged(ctx, tx, domain.StatusShipped, domain.EscrowDeliveredEventType)
	s.notify(ctx, tx.SellerID, domain.EscrowDeliveredEventType, tx)
	return toDTO(tx), nil
}

// Release 放款：状态迁移、资金流水、放款事件写在同一个数据库事务里。
// 并发放款时条件更新只放行一个，资金动账不会重复。
func (s *EscrowService) Release(ctx context.Context, transactionID string) (*EscrowDTO, error) {
	tx, err := s.load(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := tx.Release(now); err != nil {
		return nil, err
	}

	if err := s.settleRelease(ctx, tx, domain.StatusDelivered, &now); err != nil {
		return nil, err
	}

	s.countTransition("release")
	s.notify(ctx, tx.SellerID, domain.EscrowReleasedEventType, tx)
	return toDTO(tx), nil
}

// OpenDispute 开启争议，冻结交易直至裁决
func (s *EscrowService) OpenDispute(ctx context.Context, cmd OpenDisputeCommand) (*EscrowDTO, error) {
	tx, err := s.load(ctx, cmd.TransactionID)
	if err != nil {
		return nil, err
	}

	expected := tx.Status
	now := time.Now()
	if err := tx.OpenDispute(cmd.RaisedBy, cmd.Reason, now); err != nil {
		return nil, err
	}

	patch := domain.StatusPatch{
		Status:          domain.StatusDisputed,
		DisputeRaisedBy: cmd.RaisedBy,
		DisputeReason:   cmd.Reason,
		DisputedAt:      &now,
	}
	if err := s.applyTransition(ctx, tx, expected, patch, "dispute"); err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, domain.EscrowDisputedEventType, tx.TransactionID, domain.EscrowDisputedEvent{
		TransactionID: tx.TransactionID,
		RaisedBy:      cmd.RaisedBy,
		Reason:        cmd.Reason,
		OccurredOn:    now,
	}); err != nil {
		logging.Error(ctx, "publish dispute event failed", "transaction_id", tx.TransactionID, "error", err)
	}

	other := tx.SellerID
	if cmd.RaisedBy == tx.SellerID {
		other = tx.BuyerID
	}
	s.notify(ctx, other, domain.EscrowDisputedEventType, tx)
	return toDTO(tx), nil
}

// ResolveDispute 裁决争议并执行支付腿收尾。
// 裁决本身（disputed -> resolved_*）先落库；之后的退款/放款失败不会回滚裁决，
// 可通过 CompleteResolution 重试收尾。
func (s *EscrowService) ResolveDispute(ctx context.Context, cmd ResolveDisputeCommand) (*EscrowDTO, error) {
	tx, err := s.load(ctx, cmd.TransactionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := tx.Resolve(cmd.Outcome, cmd.Note, now); err != nil {
		return nil, err
	}

	patch := domain.StatusPatch{
		Status:         tx.Status,
		ResolutionNote: cmd.Note,
		ResolvedAt:     &now,
	}
	if err := s.applyTransition(ctx, tx, domain.StatusDisputed, patch, "resolve"); err != nil {
		return nil, err
	}
	s.countTransition("resolve")

	s.publishStatusChanged(ctx, tx, domain.StatusDisputed, domain.EscrowResolvedEventType)

	return s.CompleteResolution(ctx, cmd.TransactionID)
}

// CompleteResolution 裁决后的支付腿：resolved_buyer 退款后记 refunded，
// resolved_seller 直接放款记 released。幂等，可对失败的收尾重试。
func (s *EscrowService) CompleteResolution(ctx context.Context, transactionID string) (*EscrowDTO, error) {
	tx, err := s.load(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	switch tx.Status {
	case domain.StatusResolvedBuyer:
		if _, err := s.gateway.Refund(ctx, tx.PaymentReference, tx.Amount); err != nil {
			logging.Error(ctx, "escrow refund failed", "transaction_id", tx.TransactionID, "error", err)
			return nil, fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
		}
		if err := tx.CompleteResolution(now); err != nil {
			return nil, err
		}
		if err := s.settleRefund(ctx, tx, domain.StatusResolvedBuyer); err != nil {
			return nil, err
		}
		s.countTransition("refund")
		s.notify(ctx, tx.BuyerID, domain.EscrowRefundedEventType, tx)

	case domain.StatusResolvedSeller:
		if err := tx.CompleteResolution(now); err != nil {
			return nil, err
		}
		if err := s.settleRelease(ctx, tx, domain.StatusResolvedSeller, tx.ReleasedAt); err != nil {
			return nil, err
		}
		s.countTransition("release")
		s.notify(ctx, tx.SellerID, domain.EscrowReleasedEventType, tx)

	default:
		return nil, &domain.InvalidTransitionError{Current: tx.Status, Attempted: domain.StatusRefunded}
	}

	return toDTO(tx), nil
}

// GetEscrow 查询单笔交易
func (s *EscrowService) GetEscrow(ctx context.Context, transactionID string) (*EscrowDTO, error) {
	tx, err := s.load(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return toDTO(tx), nil
}

// ListEscrows 按用户分页查询
func (s *EscrowService) ListEscrows(ctx context.Context, userID string, status string, limit, offset int) ([]*EscrowDTO, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	txs, total, err := s.repo.ListByUser(ctx, userID, domain.Status(status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	dtos := make([]*EscrowDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, toDTO(tx))
	}
	return dtos, total, nil
}

// ListLedger 查询一笔交易的资金流水
func (s *EscrowService) ListLedger(ctx context.Context, transactionID string) ([]*LedgerEntryDTO, error) {
	entries, err := s.repo.ListLedgerEntries(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	dtos := make([]*LedgerEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toLedgerDTO(e))
	}
	return dtos, nil
}

// AutoReleaseDelivered 定时任务入口：放款给超过保护期仍未确认的已送达交易。
// 返回成功放款的笔数；单笔失败只记日志不中断批次。
func (s *EscrowService) AutoReleaseDelivered(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	txs, err := s.repo.FindDeliveredBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, tx := range txs {
		if _, err := s.Release(ctx, tx.TransactionID); err != nil {
			logging.Warn(ctx, "auto release skipped", "transaction_id", tx.TransactionID, "error", err)
			continue
		}
		released++
	}
	return released, nil
}

func (s *EscrowService) load(ctx context.Context, transactionID string) (*domain.EscrowTransaction, error) {
	tx, err := s.repo.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, domain.ErrNotFound
	}
	return tx, nil
}

// applyTransition 条件更新一条已通过领域校验的迁移。
// 未命中说明存在并发写，重读后给出与实际状态一致的前置条件错误。
func (s *EscrowService) applyTransition(ctx context.Context, tx *domain.EscrowTransaction, expected domain.Status, patch domain.StatusPatch, transition string) error {
	ok, err := s.repo.UpdateStatus(ctx, tx.TransactionID, expected, patch)
	if err != nil {
		return err
	}
	if !ok {
		if s.metrics != nil {
			s.metrics.EscrowConflictsTotal.Inc()
		}
		return s.conflictError(ctx, tx.TransactionID, patch.Status)
	}
	if s.metrics != nil && transition != "" {
		s.metrics.EscrowTransitionsTotal.WithLabelValues(transition).Inc()
	}
	return nil
}

// conflictError 把条件更新未命中翻译成当前真实状态下的迁移错误
func (s *EscrowService) conflictError(ctx context.Context, transactionID string, attempted domain.Status) error {
	current, err := s.repo.Get(ctx, transactionID)
	if err != nil || current == nil {
		return domain.ErrInvalidTransition
	}
	if current.Status.IsTerminal() {
		return &domain.AlreadyTerminalError{Current: current.Status, Attempted: attempted}
	}
	return &domain.InvalidTransitionError{Current: current.Status, Attempted: attempted}
}

// settleRelease 放款落库：迁移 + 卖家/平台流水 + 放款事件，同一事务
func (s *EscrowService) settleRelease(ctx context.Context, tx *domain.EscrowTransaction, expected domain.Status, releasedAt *time.Time) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		patch := domain.StatusPatch{Status: domain.StatusReleased, ReleasedAt: releasedAt}
		if err := s.applyTransition(txCtx, tx, expected, patch, ""); err != nil {
			return err
		}

		entries := tx.ReleaseEntries(func() string {
			return fmt.Sprintf("LED-%d", idgen.GenID())
		})
		if err := s.repo.SaveLedgerEntries(txCtx, entries); err != nil {
			return err
		}

		if s.metrics != nil {
			amt, _ := tx.NetSellerAmount.Float64()
			s.metrics.EscrowReleasedAmount.Add(amt)
		}
		return s.publisher.PublishInTx(ctx, contextx.GetTx(txCtx), domain.EscrowReleasedEventType, tx.TransactionID, domain.EscrowReleasedEvent{
			TransactionID:   tx.TransactionID,
			SellerID:        tx.SellerID,
			NetSellerAmount: tx.NetSellerAmount,
			CommissionAmt:   tx.CommissionAmt,
			Currency:        tx.Currency,
			OccurredOn:      time.Now(),
		})
	})
}

// settleRefund 退款落库：迁移 + 买家流水 + 退款事件，同一事务
func (s *EscrowService) settleRefund(ctx context.Context, tx *domain.EscrowTransaction, expected domain.Status) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		patch := domain.StatusPatch{Status: domain.StatusRefunded}
		if err := s.applyTransition(txCtx, tx, expected, patch, ""); err != nil {
			return err
		}

		entries := tx.RefundEntries(func() string {
			return fmt.Sprintf("LED-%d", idgen.GenID())
		})
		if err := s.repo.SaveLedgerEntries(txCtx, entries); err != nil {
			return err
		}

		return s.publisher.PublishInTx(ctx, contextx.GetTx(txCtx), domain.EscrowRefundedEventType, tx.TransactionID, domain.EscrowStatusChangedEvent{
			TransactionID: tx.TransactionID,
			BuyerID:       tx.BuyerID,
			SellerID:      tx.SellerID,
			OldStatus:     expected,
			NewStatus:     domain.StatusRefunded,
			OccurredOn:    time.Now(),
		})
	})
}

func (s *EscrowService) publishStatusChanged(ctx context.Context, tx *domain.EscrowTransaction, old domain.Status, topic string) {
	if err := s.publisher.Publish(ctx, topic, tx.TransactionID, domain.EscrowStatusChangedEvent{
		TransactionID: tx.TransactionID,
		BuyerID:       tx.BuyerID,
		SellerID:      tx.SellerID,
		OldStatus:     old,
		NewStatus:     tx.Status,
		OccurredOn:    time.Now(),
	}); err != nil {
		logging.Error(ctx, "publish escrow event failed", "transaction_id", tx.TransactionID, "topic", topic, "error", err)
	}
}

func (s *EscrowService) notify(ctx context.Context, userID, eventType string, tx *domain.EscrowTransaction) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, userID, eventType, map[string]any{
		"transaction_id": tx.TransactionID,
		"status":         string(tx.Status),
		"amount":         tx.Amount.String(),
		"currency":       tx.Currency,
	})
}

func (s *EscrowService) countTransition(transition string) {
	if s.metrics != nil && transition != "" {
		s.metrics.EscrowTransitionsTotal.WithLabelValues(transition).Inc()
	}
}
