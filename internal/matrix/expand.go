package matrix

import (
	"regexp"
	"slices"
	"strconv"
)

// Job is one expanded matrix combination.
type Job struct {
	ID      string
	Image   string
	Entry   Entry
	Env     []Var
	Install []Step
	// BuildDisabled is true when the template turned the build phase off.
	BuildDisabled bool
	Build         []Step
	Test          []Step
	InertTest     []string
}

// Expand returns one job per matrix entry, in listed order. Every job gets
// its own copy of the step sequences so jobs can be handed to independent
// workers. Job IDs are the entry keys; when two entries share a key, the
// later one gets its 1-based row number appended, e.g. "stable-x86_64-pc-windows-gnu-64#2".
func Expand(tpl *Template) []Job {
	jobs := make([]Job, 0, len(tpl.Matrix))
	ids := make(map[string]struct{}, len(tpl.Matrix))
	for i, e := range tpl.Matrix {
		id := e.Key()
		for n := 0; ; n++ {
			if _, taken := ids[id]; !taken {
				break
			}
			id = e.Key() + "#" + strconv.Itoa(i+1)
			if n > 0 {
				id += "." + strconv.Itoa(n)
			}
		}
		ids[id] = struct{}{}
		jobs = append(jobs, Job{
			ID:            id,
			Image:         tpl.Image,
			Entry:         e,
			Env:           jobEnv(tpl.Global, e),
			Install:       slices.Clone(tpl.Install),
			BuildDisabled: tpl.Build.Disabled,
			Build:         slices.Clone(tpl.Build.Script),
			Test:          slices.Clone(tpl.Test),
			InertTest:     slices.Clone(tpl.InertTest),
		})
	}
	return jobs
}

// jobEnv merges global variables with the row's own, row values winning.
// The canonical CHANNEL, TARGET and BITS names are always defined.
func jobEnv(global []Var, e Entry) []Var {
	env := slices.Clone(global)
	set := func(name, value string) {
		for i := range env {
			if env[i].Name == name {
				env[i].Value = value
				return
			}
		}
		env = append(env, Var{Name: name, Value: value})
	}
	for _, v := range e.Vars {
		set(v.Name, v.Value)
	}
	set("CHANNEL", e.Channel)
	set("TARGET", e.Target)
	if e.Bits != 0 {
		set("BITS", strconv.Itoa(e.Bits))
	}
	return env
}

// Lookup returns the value of an environment variable of the job.
func (j Job) Lookup(name string) (string, bool) {
	for _, v := range j.Env {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// Environ returns the job variables in KEY=value form.
func (j Job) Environ() []string {
	out := make([]string, 0, len(j.Env))
	for _, v := range j.Env {
		out = append(out, v.Name+"="+v.Value)
	}
	return out
}

var varRef = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_]*)%|\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// Resolve substitutes %VAR%, ${VAR} and $VAR references with the job's
// variables. Unknown references are left untouched.
func (j Job) Resolve(step Step) string {
	return varRef.ReplaceAllStringFunc(string(step), func(ref string) string {
		m := varRef.FindStringSubmatch(ref)
		name := m[1] + m[2] + m[3]
		if v, ok := j.Lookup(name); ok {
			return v
		}
		return ref
	})
}
