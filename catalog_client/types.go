package catalog_client

// HCAProject 数据仓库中的项目信息
type HCAProject struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	DOIs            []string `json:"dois"`              // 已规范化的出版物DOI
	Networks        []string `json:"networks"`          // 生物网络名称
	AtlasShortNames []string `json:"atlas_short_names"` // 组织图谱名称
	HasPrimaryData  bool     `json:"has_primary_data"`
}

// CellxGeneCollection 数据集浏览系统中的集合
type CellxGeneCollection struct {
	ID    string `json:"collection_id"`
	Title string `json:"name"`
	DOI   string `json:"doi"`
}

// CellxGeneDataset 数据集浏览系统中的数据集
type CellxGeneDataset struct {
	ID           string `json:"dataset_id"`
	CollectionID string `json:"collection_id"`
	Title        string `json:"title"`
	Tier         *int   `json:"tier,omitempty"`
}

// Publication 出版物信息
type Publication struct {
	DOI            string   `json:"doi"`
	Title          string   `json:"title"`
	Authors        []string `json:"authors"`
	Journal        string   `json:"journal"`
	Year           int      `json:"year"`
	PreprintOfDOI  string   `json:"preprint_of_doi,omitempty"`
	HasPreprintDOI string   `json:"has_preprint_doi,omitempty"`
}

// azul 接口响应结构

type azulCatalogsResp struct {
	DefaultCatalog string `json:"default_catalog"`
}

type azulProjectsResp struct {
	Hits       []azulProjectHit `json:"hits"`
	Pagination struct {
		Next string `json:"next"`
	} `json:"pagination"`
}

type azulProjectHit struct {
	Projects []struct {
		ProjectID      string   `json:"projectId"`
		ProjectTitle   string   `json:"projectTitle"`
		BionetworkName []string `json:"bionetworkName"`
		TissueAtlas    []struct {
			Atlas   string `json:"atlas"`
			Version string `json:"version"`
		} `json:"tissueAtlas"`
		Publications []struct {
			DOI string `json:"doi"`
		} `json:"publications"`
	} `json:"projects"`
	FileTypeSummaries []struct {
		Format string `json:"format"`
		Count  int    `json:"count"`
	} `json:"fileTypeSummaries"`
}

// crossref 接口响应结构

type crossrefWorkResp struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	Author []struct {
		Name   string `json:"name"`
		Family string `json:"family"`
		Given  string `json:"given"`
	} `json:"author"`
	ContainerTitle      []string `json:"container-title"`
	ShortContainerTitle []string `json:"short-container-title"`
	Institution         []struct {
		Name string `json:"name"`
	} `json:"institution"`
	Published struct {
		DateParts [][]int `json:"date-parts"`
	} `json:"published"`
	Title    []string `json:"title"`
	Type     string   `json:"type"`
	Subtype  string   `json:"subtype"`
	Relation struct {
		IsPreprintOf []struct {
			ID     string `json:"id"`
			IDType string `json:"id-type"`
		} `json:"is-preprint-of"`
		HasPreprint []struct {
			ID     string `json:"id"`
			IDType string `json:"id-type"`
		} `json:"has-preprint"`
	} `json:"relation"`
}
