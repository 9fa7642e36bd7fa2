package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/apdulab/apdulab/pkg/catalog"
)

// formModel collects the selected command's parameters with a huh form. The
// positional values are bound to the form fields, so they are ready to hand
// to the dispatcher as soon as the form completes.
type formModel struct {
	form   *huh.Form
	cmd    catalog.Command
	values []string
}

func newFormModel(cmd catalog.Command, defaults catalog.Values) *formModel {
	f := &formModel{
		cmd:    cmd,
		values: make([]string, len(cmd.Form)),
	}
	copy(f.values, defaults)

	fields := make([]huh.Field, 0, len(cmd.Form))
	for i, fd := range cmd.Form {
		if len(fd.Options) > 0 {
			fields = append(fields, huh.NewSelect[string]().
				Title(fd.Label).
				Options(huh.NewOptions(fd.Options...)...).
				Value(&f.values[i]))
			continue
		}

		in := huh.NewInput().
			Title(fd.Label).
			Placeholder(fd.Placeholder).
			Value(&f.values[i])
		if fd.Validate != nil {
			in = in.Validate(fd.Validate)
		}
		fields = append(fields, in)
	}

	f.form = huh.NewForm(huh.NewGroup(fields...))
	return f
}

func (f *formModel) Init() tea.Cmd {
	return f.form.Init()
}

// Update delegates to the form and reports completion or abort as a
// formDoneMsg.
func (f *formModel) Update(msg tea.Msg) tea.Cmd {
	model, cmd := f.form.Update(msg)
	if form, ok := model.(*huh.Form); ok {
		f.form = form
	}

	switch f.form.State {
	case huh.StateCompleted:
		return tea.Batch(cmd, func() tea.Msg { return formDoneMsg{} })
	case huh.StateAborted:
		return tea.Batch(cmd, func() tea.Msg { return formDoneMsg{aborted: true} })
	}
	return cmd
}

// Values returns the collected positional values.
func (f *formModel) Values() catalog.Values {
	return append(catalog.Values(nil), f.values...)
}

func (f *formModel) View() string {
	return pickerBorder.Render(titleStyle.Render(f.cmd.Label) + "\n" + f.form.View())
}
