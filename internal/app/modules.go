package app

import (
	"github.com/vk/queryflow/internal/llmclient"
	"github.com/vk/queryflow/internal/registry"
	"github.com/vk/queryflow/internal/retrieval"
	"github.com/vk/queryflow/modules/knowledge"
	"github.com/vk/queryflow/modules/llm"
	"github.com/vk/queryflow/modules/output"
	"github.com/vk/queryflow/modules/userquery"
)

// coreModules is the built-in capability set: the entry node, retrieval,
// generation and the terminal formatter. model is the process-wide default
// for llm_engine nodes whose config does not name one.
func coreModules(store retrieval.Retriever, generator llmclient.Generator, model string) []registry.Module {
	return []registry.Module{
		userquery.Module{},
		knowledge.Module{Retriever: store},
		llm.Module{Generator: generator, DefaultModel: model},
		output.Module{},
	}
}
