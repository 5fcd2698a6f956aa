package style

import "strings"

// Transformer compiles a style sheet and post-processes the result. Use
// ForBuild or ForServe to create one.
type Transformer struct {
	compiler Compiler
	post     *PostProcessor
	style    OutputStyle
}

// ForBuild returns the production transformer: compressed, prefixed and
// minified output.
func ForBuild(compiler Compiler, targets []string) (*Transformer, error) {
	post, err := NewPostProcessor(targets, true)
	if err != nil {
		return nil, err
	}
	return &Transformer{compiler: compiler, post: post, style: StyleCompressed}, nil
}

// ForServe returns the development transformer: expanded and prefixed, but
// not minified.
func ForServe(compiler Compiler, targets []string) (*Transformer, error) {
	post, err := NewPostProcessor(targets, false)
	if err != nil {
		return nil, err
	}
	return &Transformer{compiler: compiler, post: post, style: StyleExpanded}, nil
}

// Transform returns the final CSS for the style sheet at path.
func (t *Transformer) Transform(path string) (string, error) {
	css, err := t.compiler.Compile(path, t.style)
	if err != nil {
		return "", err
	}
	return t.post.Process(css, path)
}

// TransformModule is Transform followed by LitModule.
func (t *Transformer) TransformModule(path string) (string, error) {
	css, err := t.Transform(path)
	if err != nil {
		return "", err
	}
	return LitModule(css), nil
}

var templateEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"${", "\\${",
)

// LitModule wraps css in an ES module that exports it as a lit `css`
// template, both as `styles` and as the default export.
func LitModule(css string) string {
	var b strings.Builder
	b.WriteString("import { css } from 'lit';\n")
	b.WriteString("export const styles = css`")
	b.WriteString(templateEscaper.Replace(css))
	b.WriteString("`;\n")
	b.WriteString("export default styles;\n")
	return b.String()
}
