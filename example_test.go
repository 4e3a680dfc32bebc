package blockstpl_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oarkflow/blockstpl"
)

func ExampleCompile() {
	out, err := blockstpl.Compile(`{% if user.admin %}Hi {{ user.name }}{% endif %}`)
	if err != nil {
		panic(err)
	}
	fmt.Println(out.Code)
	fmt.Println(out.Variables)
	// Output:
	// <?php
	// if (!isset($user)) $user = TemplateHelper::getGlobalTag('user');
	// $this->layout = null;
	// ?><?php if ($user->_subtag('admin')->__toString()): ?>Hi <?php echo $user->_subtag('name') ?><?php endif ?>
	// [user]
}

// printHost stands in for the PHP runtime and reports what it was asked to
// run.
type printHost struct{ root string }

func (h printHost) Execute(_ context.Context, artifact string, tags map[string]any, _ bool) (string, error) {
	rel, _ := filepath.Rel(h.root, artifact)
	return fmt.Sprintf("ran %s with %v", filepath.ToSlash(rel), tags), nil
}

func ExampleEngine_Render() {
	dir, err := os.MkdirTemp("", "blockstpl-example")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	views := filepath.Join(dir, "views")
	cache := filepath.Join(dir, "cache")
	_ = os.MkdirAll(filepath.Join(views, "blog"), 0o755)
	page := filepath.Join(views, "blog", "post.html")
	_ = os.WriteFile(page, []byte(`<h1>{{ post.title }}</h1>`), 0o644)

	engine, err := blockstpl.New(views, cache)
	if err != nil {
		panic(err)
	}
	ctx := context.Background()

	out, err := engine.Render(ctx, printHost{root: cache}, page, map[string]any{"post": "hello"}, true)
	if err != nil {
		panic(err)
	}
	fmt.Println(out)

	res, _ := engine.Prepare(ctx, page)
	fmt.Println("compiled again:", res.Compiled)
	// Output:
	// ran blog/post.html.php with map[post:hello]
	// compiled again: false
}
