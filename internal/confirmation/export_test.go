package confirmation

// ExtractRedirect exposes the host redirect script parser.
var ExtractRedirect = extractRedirect
