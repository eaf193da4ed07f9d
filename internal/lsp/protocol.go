package lsp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.lsp.dev/uri"
)

// LSP methods used by the client
const (
	MethodInitialize     = "initialize"
	MethodInitialized    = "initialized"
	MethodShutdown       = "shutdown"
	MethodExit           = "exit"
	MethodDidOpen        = "textDocument/didOpen"
	MethodDefinition     = "textDocument/definition"
	MethodConfiguration  = "workspace/configuration"
	MethodWorkspaceDirs  = "workspace/workspaceFolders"
	MethodProgressCreate = "window/workDoneProgress/create"
	MethodRegisterCap    = "client/registerCapability"
	MethodShowMessageReq = "window/showMessageRequest"
)

type Position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type Location struct {
	URI   uri.URI `json:"uri"`
	Range Range   `json:"range"`
}

type LocationLink struct {
	OriginSelectionRange *Range  `json:"originSelectionRange,omitempty"`
	TargetURI            uri.URI `json:"targetUri"`
	TargetRange          Range   `json:"targetRange"`
	TargetSelectionRange Range   `json:"targetSelectionRange"`
}

type TextDocumentIdentifier struct {
	URI uri.URI `json:"uri"`
}

type TextDocumentItem struct {
	URI        uri.URI `json:"uri"`
	LanguageID string  `json:"languageId"`
	Version    int32   `json:"version"`
	Text       string  `json:"text"`
}

type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

type WorkspaceFolder struct {
	URI  uri.URI `json:"uri"`
	Name string  `json:"name"`
}

// ClientCapabilities advertises the little the client understands: definitions,
// optionally as links, and pull-style configuration.
type ClientCapabilities struct {
	TextDocument struct {
		Definition struct {
			LinkSupport bool `json:"linkSupport"`
		} `json:"definition"`
	} `json:"textDocument"`
	Workspace struct {
		Configuration    bool `json:"configuration"`
		WorkspaceFolders bool `json:"workspaceFolders"`
	} `json:"workspace"`
}

type InitializeParams struct {
	ProcessID        int32              `json:"processId"`
	RootURI          uri.URI            `json:"rootUri"`
	RootPath         string             `json:"rootPath"`
	Capabilities     ClientCapabilities `json:"capabilities"`
	WorkspaceFolders []WorkspaceFolder  `json:"workspaceFolders"`
}

type InitializeResult struct {
	Capabilities map[string]any    `json:"capabilities"`
	ServerInfo   map[string]string `json:"serverInfo,omitempty"`
}

type ConfigurationParams struct {
	Items []json.RawMessage `json:"items"`
}

// DecodeDefinition normalizes a textDocument/definition result. The result may be
// null, a single Location, a Location array or a LocationLink array; links are
// reduced to their target selection range.
func DecodeDefinition(raw json.RawMessage) ([]Location, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '{':
		var loc Location
		if err := json.Unmarshal(trimmed, &loc); err != nil {
			return nil, err
		}
		if loc.URI == "" {
			return nil, fmt.Errorf("location without uri")
		}
		return []Location{loc}, nil
	case '[':
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		locs := make([]Location, 0, len(items))
		for i, item := range items {
			_, isLink := item["targetUri"]
			data, err := json.Marshal(item)
			if err != nil {
				return nil, err
			}
			if isLink {
				var link LocationLink
				if err := json.Unmarshal(data, &link); err != nil {
					return nil, err
				}
				locs = append(locs, Location{URI: link.TargetURI, Range: link.TargetSelectionRange})
				continue
			}
			var loc Location
			if err := json.Unmarshal(data, &loc); err != nil {
				return nil, err
			}
			if loc.URI == "" {
				return nil, fmt.Errorf("location %d without uri", i)
			}
			locs = append(locs, loc)
		}
		return locs, nil
	default:
		return nil, fmt.Errorf("unexpected definition result %s", trimmed)
	}
}
