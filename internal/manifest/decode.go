package manifest

import (
	"encoding/json"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

func decodeJSON(_ string, data []byte) (*rawManifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	return &raw, nil
}

func decodeYAML(_ string, data []byte) (*rawManifest, error) {
	var raw rawManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	return &raw, nil
}

func decodeTOML(_ string, data []byte) (*rawManifest, error) {
	var raw rawManifest
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	return &raw, nil
}

// hclManifest mirrors rawManifest with one labelled block per shader:
//
//	shader "gbuffer" {
//	  path    = "shaders/gbuffer.hlsl"
//	  profile = "ps_6_6"
//	}
type hclManifest struct {
	Version     string      `hcl:"version,optional"`
	IncludeDirs []string    `hcl:"include_dirs,optional"`
	Shaders     []hclShader `hcl:"shader,block"`
}

type hclShader struct {
	Name    string   `hcl:"name,label"`
	Path    string   `hcl:"path,optional"`
	Entry   string   `hcl:"entry,optional"`
	Profile string   `hcl:"profile,optional"`
	Defines []string `hcl:"defines,optional"`
	Spirv   bool     `hcl:"spirv,optional"`
}

func decodeHCL(filename string, data []byte) (*rawManifest, error) {
	var hm hclManifest
	if err := hclsimple.Decode(filename, data, nil, &hm); err != nil {
		return nil, err
	}

	raw := &rawManifest{
		Version:     hm.Version,
		IncludeDirs: hm.IncludeDirs,
	}

	for _, s := range hm.Shaders {
		raw.Shaders = append(raw.Shaders, rawJob(s))
	}

	return raw, nil
}
