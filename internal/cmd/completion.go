package cmd

import (
	"fmt"
	"io"

	"github.com/philipparndt/citysolid/internal/ui"
)

type CompletionCmd struct {
	Shell string `arg:"" help:"Shell type: bash, zsh, or fish"`
}

func (c *CompletionCmd) Run() error {
	return writeCompletion(ui.Out, c.Shell)
}

func writeCompletion(w io.Writer, shell string) error {
	var script string
	switch shell {
	case "bash":
		script = bashCompletion
	case "zsh":
		script = zshCompletion
	case "fish":
		script = fishCompletion
	default:
		return fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish)", shell)
	}
	_, err := io.WriteString(w, script)
	return err
}

const bashCompletion = `# bash completion for citysolid

_citysolid_completions() {
    local cur prev opts
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    # Main commands
    if [[ ${COMP_CWORD} -eq 1 ]]; then
        opts="convert inspect survey config completion version"
        COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
        return 0
    fi

    case "${COMP_WORDS[1]}" in
        convert)
            case "${prev}" in
                -o|--output)
                    COMPREPLY=( $(compgen -f -X '!*.@(stl|3mf)' -- ${cur}) )
                    return 0
                    ;;
                -c|--config)
                    COMPREPLY=( $(compgen -f -X '!*.@(yaml|yml)' -- ${cur}) )
                    return 0
                    ;;
                --reference)
                    COMPREPLY=( $(compgen -W "zero plate_top" -- ${cur}) )
                    return 0
                    ;;
                -l|--layer|--max-dimension|--workers|--log-file)
                    return 0
                    ;;
            esac
            if [[ ${cur} == -* ]]; then
                opts="-c --config -o --output -l --layer --max-dimension --no-base --reference --ascii --workers -w --watch -v --verbose --log-file -h --help"
                COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
            else
                COMPREPLY=( $(compgen -f -X '!*.dxf' -- ${cur}) )
            fi
            ;;
        inspect)
            if [[ ${cur} == -* ]]; then
                COMPREPLY=( $(compgen -W "-h --help" -- ${cur}) )
            else
                COMPREPLY=( $(compgen -f -X '!*.@(stl|3mf)' -- ${cur}) )
            fi
            ;;
        survey)
            if [[ ${cur} == -* ]]; then
                COMPREPLY=( $(compgen -W "-l --layer -h --help" -- ${cur}) )
            else
                COMPREPLY=( $(compgen -f -X '!*.dxf' -- ${cur}) )
            fi
            ;;
        config)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "init show" -- ${cur}) )
            else
                COMPREPLY=( $(compgen -f -X '!*.@(yaml|yml)' -- ${cur}) )
            fi
            ;;
        completion)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            fi
            ;;
    esac
    return 0
}

complete -F _citysolid_completions citysolid
`

const zshCompletion = `#compdef citysolid

_citysolid() {
    local -a commands
    commands=(
        'convert:Convert the building meshes of a DXF drawing into a printable solid'
        'inspect:Inspect an STL or 3MF solid'
        'survey:List the entities and layers of a DXF drawing'
        'config:Create or show job files'
        'completion:Generate shell completion script'
        'version:Show version information'
    )

    local -a convert_opts
    convert_opts=(
        '(-c --config)'{-c,--config}'[YAML job file]:job file:_files -g "*.{yaml,yml}"'
        '(-o --output)'{-o,--output}'[Output file]:output file:_files -g "*.{stl,3mf}"'
        '(-l --layer)'{-l,--layer}'[Building layer]:layer:'
        '--max-dimension[Largest allowed extent]:size:'
        '--no-base[Do not generate a base plate]'
        '--reference[Height buildings are placed at]:reference:(zero plate_top)'
        '--ascii[Write ASCII STL]'
        '--workers[Parallel mesh builders]:count:'
        '(-w --watch)'{-w,--watch}'[Convert again on changes]'
        '(-v --verbose)'{-v,--verbose}'[Show every build step]'
        '--log-file[Write JSON logs to this file]:log file:_files'
        '(-h --help)'{-h,--help}'[Show help]'
        '*:drawing:_files -g "*.dxf"'
    )

    _arguments -C \
        '1: :->command' \
        '*:: :->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                convert)
                    _arguments $convert_opts
                    ;;
                inspect)
                    _arguments '*:solid:_files -g "*.{stl,3mf}"'
                    ;;
                survey)
                    _arguments '(-l --layer)'{-l,--layer}'[Building layer]:layer:' '*:drawing:_files -g "*.dxf"'
                    ;;
                config)
                    _values 'config command' 'init[Write a job file with every default]' 'show[Print the effective job configuration]'
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
                version)
                    _arguments '(-h --help)'{-h,--help}'[Show help]'
                    ;;
            esac
            ;;
    esac
}

_citysolid
`

const fishCompletion = `# fish completion for citysolid

# Main commands
complete -c citysolid -f -n "__fish_use_subcommand" -a "convert" -d "Convert a DXF drawing into a printable solid"
complete -c citysolid -f -n "__fish_use_subcommand" -a "inspect" -d "Inspect an STL or 3MF solid"
complete -c citysolid -f -n "__fish_use_subcommand" -a "survey" -d "List the entities and layers of a DXF drawing"
complete -c citysolid -f -n "__fish_use_subcommand" -a "config" -d "Create or show job files"
complete -c citysolid -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion script"
complete -c citysolid -f -n "__fish_use_subcommand" -a "version" -d "Show version information"

# convert command options
complete -c citysolid -f -n "__fish_seen_subcommand_from convert" -s c -l config -d "YAML job file" -r -a "(__fish_complete_suffix .yaml)"
complete -c citysolid -f -n "__fish_seen_subcommand_from convert" -s o -l output -d "Output file" -r -a "(__fish_complete_suffix .stl)"
complete -c citysolid -f -n "__fish_seen_subcommand_from convert" -s l -l layer -d "Building layer" -r
complete -c citysolid -f -n "__fish_seen_subcommand_from convert" -l max-dimension -d "Largest allowed extent" -r
complete -c citysolid -f -n "__fish_seen_subcommand_from convert" -l no-base -d "Do not generate a base plate"
complete -c citysolid -f -n "__fish_seen_subcommand_from convert" -l reference -d "Height buildings are placed at" -r -a "zero plate_top"
complete -c citysolid -f -n "__fish_seen_subcommand_from convert" -l ascii -d "Write ASCII STL"
complete -c citysolid -f -n "__fish_seen_subcommand_from convert" -l workers -d "Parallel mesh builders" -r
complete -c citysolid -f -n "__fish_seen_subcommand_from convert" -s w -l watch -d "Convert again on changes"
complete -c citysolid -f -n "__fish_seen_subcommand_from convert" -s v -l verbose -d "Show every build step"
complete -c citysolid -n "__fish_seen_subcommand_from convert" -a "(__fish_complete_suffix .dxf)" -d "DXF drawing"

# inspect and survey
complete -c citysolid -n "__fish_seen_subcommand_from inspect" -a "(__fish_complete_suffix .stl)" -d "STL file"
complete -c citysolid -n "__fish_seen_subcommand_from inspect" -a "(__fish_complete_suffix .3mf)" -d "3MF file"
complete -c citysolid -f -n "__fish_seen_subcommand_from survey" -s l -l layer -d "Building layer" -r
complete -c citysolid -n "__fish_seen_subcommand_from survey" -a "(__fish_complete_suffix .dxf)" -d "DXF drawing"

# config and completion
complete -c citysolid -f -n "__fish_seen_subcommand_from config" -a "init" -d "Write a job file with every default"
complete -c citysolid -f -n "__fish_seen_subcommand_from config" -a "show" -d "Print the effective job configuration"
complete -c citysolid -f -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`

func (c *CompletionCmd) Help() string {
	return `
Generate shell completion scripts for citysolid.

Examples:
  # Bash
  citysolid completion bash > ~/.local/share/bash-completion/completions/citysolid

  # Zsh
  citysolid completion zsh > ~/.zsh/completion/_citysolid

  # Fish
  citysolid completion fish > ~/.config/fish/completions/citysolid.fish
`
}
