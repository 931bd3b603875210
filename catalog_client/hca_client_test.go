package catalog_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHCAClientFetchGeneration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/index/catalogs" {
			t.Errorf("期望路径 /index/catalogs, 实际 %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"default_catalog":"dcp45","catalogs":{}}`))
	}))
	defer server.Close()

	client := NewHCAClient(server.URL)
	generation, err := client.FetchGeneration(context.Background())
	if err != nil {
		t.Fatalf("FetchGeneration() error = %v", err)
	}
	if generation != "dcp45" {
		t.Errorf("期望 dcp45, 实际 %s", generation)
	}
}

func TestHCAClientFetchGenerationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHCAClient(server.URL)
	if _, err := client.FetchGeneration(context.Background()); err == nil {
		t.Error("期望返回错误")
	}
}

func TestHCAClientFetchProjectsPaginated(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/index/projects" {
			t.Errorf("期望路径 /index/projects, 实际 %s", r.URL.Path)
		}
		if r.URL.Query().Get("catalog") != "dcp45" {
			t.Errorf("期望 catalog=dcp45, 实际 %s", r.URL.Query().Get("catalog"))
		}

		resp := map[string]interface{}{}
		if r.URL.Query().Get("page") == "" {
			resp["hits"] = []interface{}{
				map[string]interface{}{
					"projects": []interface{}{
						map[string]interface{}{
							"projectId":      "p1",
							"projectTitle":   "Lung atlas project",
							"bionetworkName": []string{"lung", "lung"},
							"tissueAtlas":    []interface{}{map[string]string{"atlas": "Lung", "version": "v1.0"}},
							"publications":   []interface{}{map[string]string{"doi": "https://doi.org/10.1000/ABC"}},
						},
					},
					"fileTypeSummaries": []interface{}{map[string]interface{}{"format": "fastq.gz", "count": 4}},
				},
			}
			resp["pagination"] = map[string]string{"next": fmt.Sprintf("%s/index/projects?catalog=dcp45&page=2", server.URL)}
		} else {
			resp["hits"] = []interface{}{
				map[string]interface{}{
					"projects": []interface{}{
						map[string]interface{}{
							"projectId":    "p2",
							"projectTitle": "Heart project",
							"publications": []interface{}{},
						},
					},
					"fileTypeSummaries": []interface{}{map[string]interface{}{"format": "h5ad", "count": 1}},
				},
			}
			resp["pagination"] = map[string]interface{}{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHCAClient(server.URL)
	projects, err := client.FetchProjects(context.Background(), "dcp45")
	if err != nil {
		t.Fatalf("FetchProjects() error = %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("期望 2 个项目, 实际 %d", len(projects))
	}

	first := projects[0]
	if first.ID != "p1" || !first.HasPrimaryData {
		t.Errorf("第一个项目解析错误: %+v", first)
	}
	if len(first.DOIs) != 1 || first.DOIs[0] != "10.1000/abc" {
		t.Errorf("DOI未规范化: %v", first.DOIs)
	}
	if len(first.Networks) != 1 || first.Networks[0] != "lung" {
		t.Errorf("网络未去重: %v", first.Networks)
	}
	if len(first.AtlasShortNames) != 1 || first.AtlasShortNames[0] != "Lung" {
		t.Errorf("图谱名称解析错误: %v", first.AtlasShortNames)
	}
	if projects[1].HasPrimaryData {
		t.Error("h5ad 不应视为原始数据")
	}
}
