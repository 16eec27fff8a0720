package view

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAppendChildReparents(t *testing.T) {
	first := New("div")
	second := New("div")
	child := New("span")

	first.AppendChild(child)
	second.AppendChild(child)

	if len(first.Children()) != 0 {
		t.Fatalf("child should leave its previous parent")
	}
	if child.Parent() != second || !second.Contains(child) || first.Contains(child) {
		t.Fatalf("unexpected parent %v", child.Parent())
	}

	first.AppendChild(first)
	if len(first.Children()) != 0 {
		t.Fatalf("an element cannot contain itself")
	}
}

func TestRemoveAndClear(t *testing.T) {
	root := New("div")
	a, b := New("p"), Text("hello")
	root.AppendChild(a)
	root.AppendChild(b)

	a.Remove()
	if root.RemoveChild(a) {
		t.Fatalf("detached child should not be removable twice")
	}
	if root.TextContent() != "hello" {
		t.Fatalf("text = %q", root.TextContent())
	}

	root.Clear()
	if len(root.Children()) != 0 || b.Parent() != nil {
		t.Fatalf("clear should detach children")
	}
	root.SetText("x")
	if root.OwnText() != "x" || root.IsText() {
		t.Fatalf("unexpected text node state")
	}
	if !b.IsText() {
		t.Fatalf("Text() should build a text node")
	}
}

func TestClassesAndStyles(t *testing.T) {
	el := New("div", "a b", "b")
	el.AddClass("c")
	el.RemoveClass("a")
	if diff := cmp.Diff([]string{"b", "c"}, el.Classes()); diff != "" {
		t.Fatalf("classes mismatch (-want +got):\n%s", diff)
	}

	el.SetStyle("width", "10px")
	el.SetStyle("color", "red")
	el.SetStyle("width", "")
	el.SetStyle("position", "relative")
	if got := el.StyleString(); got != "color: red; position: relative" {
		t.Fatalf("style = %q", got)
	}
}

func TestTriggerSwallowsDisabledClicks(t *testing.T) {
	button := New("button")
	var clicks, changes int
	button.On("click", func() { clicks++ })
	button.On("change", func() { changes++ })

	button.Trigger("click")
	button.SetDisabled(true)
	button.Trigger("click")
	button.Trigger("change")
	button.SetDisabled(false)
	button.Trigger("click")

	if clicks != 2 || changes != 1 {
		t.Fatalf("clicks=%d changes=%d", clicks, changes)
	}
}

func TestFind(t *testing.T) {
	root := New("div")
	inner := New("section")
	img := New("img")
	inner.AppendChild(img)
	root.AppendChild(inner)

	if got := root.Find(func(el *Element) bool { return el.Tag == "img" }); got != img {
		t.Fatalf("find returned %v", got)
	}
	if got := root.Find(func(el *Element) bool { return el.Tag == "video" }); got != nil {
		t.Fatalf("expected nil")
	}
	var nilEl *Element
	if nilEl.Find(func(*Element) bool { return true }) != nil || nilEl.TextContent() != "" {
		t.Fatalf("nil element should be inert")
	}
}
