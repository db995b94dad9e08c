package importer

import (
	_ "embed"
)

// TemplateFileName is the name the template is served and saved under
const TemplateFileName = "template_veiculos.csv"

// Template is the downloadable CSV template. Its column order defines the
// positional mapping used by ParseText.
//
//go:embed template_veiculos.csv
var Template []byte
