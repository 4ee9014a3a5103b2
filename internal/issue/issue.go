// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	AlignmentNotFoundId Id = iota + 1
	InvalidRequestId
	PlmcNotFoundId
	ReformatNotFoundId
	PlmcFailedId
	PlmcTimeoutId
	DegenerateOutputId
	ConfigLoadFailedId
	PermissionDeniedId
	ServerStartFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

const plmcRepo HttpLink = "https://github.com/debbiemarkslab/plmc"

var (
	render = glamour.Render

	alignmentNotFoundIssue = &Issue{
		id: AlignmentNotFoundId,
		mdMsg: `
# Alignment file not found

plmc needs an existing, non-empty alignment in A2M format.

## Things you can try
- Pass an absolute path; relative paths are resolved by the caller, never by the server.
- Convert an A3M alignment first:
~~~
$ plmc-harness convert query.a3m --out query.a2m
~~~`,
		extLinks: []HttpLink{"https://github.com/soedinglab/hh-suite"},
	}

	invalidRequestIssue = &Issue{
		id: InvalidRequestId,
		mdMsg: `
# Invalid analysis request

One of the request fields is outside its documented range.

| field | flag | default | valid range |
|---|---|---|---|
| lambda_e | -le | 16.2 | > 0 |
| lambda_h | -lh | 0.01 | > 0 |
| max_iterations | -m | 200 | >= 1 |
| theta | -t | 0.2 | 0 to 1 |

Fix the field named in the error and resubmit.`,
	}

	plmcNotFoundIssue = &Issue{
		id: PlmcNotFoundId,
		mdMsg: `
# plmc binary not found

The harness looked for plmc in this order:
1. ` + "`plmc.binary_path`" + ` in config.cue, or ` + "`PLMC_BIN`" + `
2. ` + "`$PLMC_DIR/bin/plmc`" + `
3. ` + "`repo/plmc/bin/plmc`" + ` next to the working directory
4. ` + "`PATH`" + `

## Things you can try
~~~
$ git clone https://github.com/debbiemarkslab/plmc repo/plmc
$ make -C repo/plmc all-openmp
$ export PLMC_DIR=$PWD/repo/plmc
~~~`,
		docLinks: []HttpLink{plmcRepo},
	}

	reformatNotFoundIssue = &Issue{
		id: ReformatNotFoundId,
		mdMsg: `
# reformat.pl not found

A3M to A2M conversion shells out to hh-suite's ` + "`reformat.pl`" + `.

## Things you can try
- Install hh-suite into the active environment (` + "`conda install -c bioconda hhsuite`" + `).
- Point ` + "`reformat.script_path`" + ` or ` + "`PLMC_REFORMAT`" + ` at the script.`,
		extLinks: []HttpLink{"https://github.com/soedinglab/hh-suite"},
	}

	plmcFailedIssue = &Issue{
		id: PlmcFailedId,
		mdMsg: `
# plmc exited with an error

The output directory was left in place for diagnosis.

## Things you can try
- Read the captured stderr shown above, and the ` + "`<prefix>.run.toml`" + ` manifest.
- Check that the focus sequence id matches a header in the alignment.`,
		docLinks: []HttpLink{plmcRepo},
	}

	plmcTimeoutIssue = &Issue{
		id: PlmcTimeoutId,
		mdMsg: `
# plmc exceeded its time limit

The process group was killed and partial outputs were removed. Runs are never retried
automatically because the computation is expensive.

## Things you can try
- Raise ` + "`--timeout`" + ` or ` + "`plmc.timeout`" + `.
- Lower ` + "`max_iterations`" + `.`,
	}

	degenerateOutputIssue = &Issue{
		id: DegenerateOutputId,
		mdMsg: `
# plmc produced no usable output

plmc exited 0 but the model-parameter or coupling file is missing or empty.
This usually means the alignment had no usable columns for the focus sequence.

## Things you can try
- Run ` + "`plmc-harness clean-gaps`" + ` on the alignment and retry.
- Verify the focus sequence id.`,
		docLinks: []HttpLink{plmcRepo},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration

## Things you can try
- Validate the CUE syntax of your config file.
- Show the effective configuration:
~~~
$ plmc-harness config show
~~~
- Start from defaults:
~~~
$ plmc-harness config init
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied

The harness could not read the alignment, write the output directory, or execute a binary.

## Things you can try
- ` + "`chmod +x`" + ` the plmc binary.
- Check ownership of the output directory.`,
	}

	serverStartFailedIssue = &Issue{
		id: ServerStartFailedId,
		mdMsg: `
# Tool server failed to start

## Things you can try
- Pick another port with ` + "`--port`" + ` (0 selects a free one).
- Check that no other plmc-harness server is bound to the same address.`,
	}

	issues = map[Id]*Issue{
		alignmentNotFoundIssue.Id(): alignmentNotFoundIssue,
		invalidRequestIssue.Id():    invalidRequestIssue,
		plmcNotFoundIssue.Id():      plmcNotFoundIssue,
		reformatNotFoundIssue.Id():  reformatNotFoundIssue,
		plmcFailedIssue.Id():        plmcFailedIssue,
		plmcTimeoutIssue.Id():       plmcTimeoutIssue,
		degenerateOutputIssue.Id():  degenerateOutputIssue,
		configLoadFailedIssue.Id():  configLoadFailedIssue,
		permissionDeniedIssue.Id():  permissionDeniedIssue,
		serverStartFailedIssue.Id(): serverStartFailedIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	ids := maps.Keys(issues)
	slices.Sort(ids)
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
