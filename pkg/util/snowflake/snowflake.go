package snowflake

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
)

// Init 初始化雪花算法节点，machineID 取值 0-1023，多实例部署时必须互不相同
// 只有第一次调用生效
func Init(machineID int64) {
	nodeOnce.Do(func() {
		if machineID < 0 || machineID > 1023 {
			zap.L().Warn("雪花算法节点ID非法，使用默认值 1", zap.Int64("machineID", machineID))
			machineID = 1
		}
		var err error
		node, err = snowflake.NewNode(machineID)
		if err != nil {
			zap.L().Fatal("雪花算法节点初始化失败", zap.Error(err))
		}
		zap.L().Info("雪花算法节点初始化成功", zap.Int64("machineID", machineID))
	})
}

// GenerateID 生成消息 ID (int64)
func GenerateID() int64 {
	Init(1)
	return node.Generate().Int64()
}
