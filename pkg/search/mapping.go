package search

import (
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

func BuildIndexMapping(defaultAnalyzer string) *mapping.IndexMappingImpl {
	if defaultAnalyzer == "" {
		defaultAnalyzer = standard.Name
	}
	idx := mapping.NewIndexMapping()
	idx.DefaultAnalyzer = defaultAnalyzer
	idx.TypeField = "type"

	// 文本
	text := mapping.NewTextFieldMapping()
	text.Store = false
	text.Index = true
	text.Analyzer = defaultAnalyzer
	text.IncludeInAll = true

	// 关键词，不进入 _all
	kw := mapping.NewTextFieldMapping()
	kw.Store = true
	kw.Index = true
	kw.Analyzer = keyword.Name
	kw.IncludeInAll = false

	dt := mapping.NewDateTimeFieldMapping()
	dt.Store = true
	dt.Index = true
	dt.IncludeInAll = false

	alert := mapping.NewDocumentMapping()
	alert.Dynamic = false
	alert.AddFieldMappingsAt("childName", text)
	alert.AddFieldMappingsAt("lastSeenLocation", text)
	alert.AddFieldMappingsAt("description", text)
	alert.AddFieldMappingsAt("riskLevel", kw)
	alert.AddFieldMappingsAt("status", kw)
	alert.AddFieldMappingsAt("createdAt", dt)
	idx.AddDocumentMapping(DocTypeAlert, alert)

	def := mapping.NewDocumentMapping()
	def.Dynamic = false
	idx.DefaultMapping = def
	return idx
}
