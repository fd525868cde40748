package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"promo-intelligence/internal/pkg/logger"
	"promo-intelligence/internal/pkg/mq"
)

const schedulerTracerName = "suggestion-scheduler"

// MessageReader 是 *kafka.Reader 的消费子集
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AutomationTrigger 场馆活动事件（例如一批签到写入后），要求立即对该场馆跑一次自动化
type AutomationTrigger struct {
	VenueID   string  `json:"venueId"`
	Threshold float64 `json:"threshold,omitempty"`
}

// AutomationTriggerConsumer 是一个驱动适配器，它监听 Kafka 消息并驱动自动化用例。
type AutomationTriggerConsumer struct {
	reader MessageReader
	runner AutomationRunner
	wg     sync.WaitGroup
}

func NewAutomationTriggerConsumer(reader MessageReader, runner AutomationRunner) *AutomationTriggerConsumer {
	return &AutomationTriggerConsumer{reader: reader, runner: runner}
}

// Start 在后台循环消费，ctx 取消后退出
func (c *AutomationTriggerConsumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		logger.Ctx(ctx).Info().Msg("Automation trigger consumer started")
		for {
			// 使用 FetchMessage 而不是 ReadMessage，处理完再手动提交
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Ctx(ctx).Info().Msg("Automation trigger consumer shutting down")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("Could not read trigger message, retrying")
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}

			c.process(mq.ExtractTraceContext(ctx, msg.Headers), msg)

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("Failed to commit trigger message")
			}
		}
	}()
}

// Stop 关闭 reader 并等待消费循环退出
func (c *AutomationTriggerConsumer) Stop() {
	if err := c.reader.Close(); err != nil {
		logger.L().Warn().Err(err).Msg("Failed to close trigger reader")
	}
	c.wg.Wait()
}

// process 解析失败的消息直接跳过；自动化失败只记录，不重投
func (c *AutomationTriggerConsumer) process(ctx context.Context, msg kafka.Message) {
	var trigger AutomationTrigger
	if err := json.Unmarshal(msg.Value, &trigger); err != nil || trigger.VenueID == "" {
		// 兼容只带 key 的消息
		if len(msg.Key) == 0 {
			logger.Ctx(ctx).Warn().Bytes("value", msg.Value).Msg("Skipping malformed automation trigger")
			return
		}
		trigger = AutomationTrigger{VenueID: string(msg.Key)}
	}

	result, err := c.runner.RunAutomation(ctx, trigger.VenueID, trigger.Threshold)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("venue_id", trigger.VenueID).Msg("Triggered automation failed")
		return
	}
	logger.Ctx(ctx).Info().Str("venue_id", trigger.VenueID).Int("posted", len(result.Posted)).Msg("Triggered automation finished")
}
