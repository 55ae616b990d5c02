package catalog

import (
	"fmt"

	"github.com/jonwraymond/tooldiscovery/index"
	"github.com/jonwraymond/tooldiscovery/search"
	"github.com/jonwraymond/tooldiscovery/tooldoc"
	"github.com/jonwraymond/toolfoundation/model"
)

// DefaultNamespace is the namespace tools are indexed under when none is given.
const DefaultNamespace = "session"

// Index provides search and documentation over a catalog.
type Index struct {
	namespace string
	idx       index.Index
	docs      *tooldoc.InMemoryStore
}

// NewIndex registers every descriptor of cat in a BM25 index and a doc store.
// Tool IDs take the form "namespace:name".
func NewIndex(cat *Catalog, namespace string) (*Index, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	idx := index.NewInMemoryIndex(index.IndexOptions{
		Searcher: search.NewBM25Searcher(search.BM25Config{}),
	})
	docs := tooldoc.NewInMemoryStore(tooldoc.StoreOptions{Index: idx})

	descs := cat.Descriptors()
	for i, tool := range cat.ModelTools(namespace) {
		if err := idx.RegisterTool(tool, model.NewLocalBackend(namespace)); err != nil {
			return nil, fmt.Errorf("index tool %s: %w", tool.Name, err)
		}
		if err := docs.RegisterDoc(namespace+":"+tool.Name, tooldoc.DocEntry{
			Summary: descs[i].Description,
			Notes:   descs[i].Signature(),
		}); err != nil {
			return nil, fmt.Errorf("register doc %s: %w", tool.Name, err)
		}
	}
	return &Index{namespace: namespace, idx: idx, docs: docs}, nil
}

// Search returns summaries of tools matching query, best first.
func (x *Index) Search(query string, limit int) ([]index.Summary, error) {
	return x.idx.Search(query, limit)
}

// Describe returns full documentation for the named tool.
func (x *Index) Describe(name string) (tooldoc.ToolDoc, error) {
	return x.docs.DescribeTool(x.ID(name), tooldoc.DetailFull)
}

// ID returns the indexed ID of a tool name.
func (x *Index) ID(name string) string {
	return x.namespace + ":" + name
}
