package meta

// 外部目录名称
const (
	CatalogHCA       = "hca"
	CatalogCellxGene = "cellxgene"
)

// 刷新活动状态
const (
	RefreshActivityNotRefreshing = "NOT_REFRESHING"
	RefreshActivityAttempting    = "ATTEMPTING_REFRESH"
	RefreshActivityRefreshing    = "REFRESHING"
)

// 上一次刷新结果
const (
	RefreshOutcomeNA        = "NA"
	RefreshOutcomeCompleted = "COMPLETED"
	RefreshOutcomeFailed    = "FAILED"
)

var RefreshActivities = []MetaField{
	{
		Name:        RefreshActivityNotRefreshing,
		DisplayName: "未刷新",
		Type:        "string",
	},
	{
		Name:        RefreshActivityAttempting,
		DisplayName: "尝试刷新",
		Type:        "string",
	},
	{
		Name:        RefreshActivityRefreshing,
		DisplayName: "刷新中",
		Type:        "string",
	},
}
