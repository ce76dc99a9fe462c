package idgen

import (
	"fmt"
	"sync"
	"time"
)

// 雪花算法：41位毫秒时间戳 | 10位机器ID | 12位序列号

const (
	epoch          = int64(1704067200000) // 2024-01-01 00:00:00 UTC
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	workerID  int64
	sequence  int64
}

func NewSnowflake(workerID int64) (*Snowflake, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("workerID 必须在 0-%d 之间", maxWorkerID)
	}
	return &Snowflake{workerID: workerID}, nil
}

const defaultWorkerID = 1

// lazyGenerator 只初始化一次，失败的结果同样保留，后续调用不会拿到 nil 生成器
type lazyGenerator struct {
	once sync.Once
	gen  *Snowflake
	err  error
}

func (l *lazyGenerator) init(workerID int64) error {
	l.once.Do(func() {
		l.gen, l.err = NewSnowflake(workerID)
	})
	return l.err
}

var defaultGenerator lazyGenerator

// Init 初始化默认生成器，只有第一次调用生效
func Init(workerID int64) error {
	return defaultGenerator.init(workerID)
}

// NextID 未调用 Init 时按 defaultWorkerID 初始化
// Init 失败时 main 直接退出，走到这里说明调用方忽略了 Init 的错误
func NextID() int64 {
	if err := Init(defaultWorkerID); err != nil {
		panic(fmt.Sprintf("idgen 未正确初始化: %v", err))
	}
	return defaultGenerator.gen.Generate()
}

func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// 本毫秒序列号用完
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	return ((now - epoch) << timestampShift) |
		(s.workerID << workerIDShift) |
		s.sequence
}

// 格式：前缀 + 年月日时分秒 + 雪花ID后10位，例如 ORD202401151430520012345678
func businessNo(prefix string) string {
	id := NextID()
	return fmt.Sprintf("%s%s%010d", prefix, time.Now().Format("20060102150405"), id%10000000000)
}

// GenerateOrderNo 生成订单号
func GenerateOrderNo() string {
	return businessNo("ORD")
}

// GenerateTransactionNo 生成钱包流水号
func GenerateTransactionNo() string {
	return businessNo("TXN")
}

// GenerateLockToken 分布式锁持有者标识
func GenerateLockToken() string {
	return fmt.Sprintf("LCK%d", NextID())
}
