package models

// AllModels 需要自动迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&SourceStudy{},
		&SourceDataset{},
		&Atlas{},
		&ValidationRecord{},
	}
}
