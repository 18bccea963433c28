// Package factory is a small generic registry used to build pluggable modules
// (metrics sinks, decision log backends) from configuration. A module is
// described by a type name and a map of raw settings which the factory
// decodes into its own typed struct with Decode.
//
//	reg := factory.NewRegistry[Store]()
//	reg.Register("jsonl", func(conf map[string]any) (Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return OpenJSONL(c.Path)
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": "decisions.jsonl"}})
package factory
