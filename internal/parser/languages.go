package parser

import "strings"

// Language identifies a supported source language.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
)

// LanguageFromExtension maps a file extension (with dot) to a language.
func LanguageFromExtension(ext string) (Language, bool) {
	switch strings.ToLower(ext) {
	case ".go":
		return LangGo, true
	case ".js", ".mjs", ".cjs", ".jsx":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".py":
		return LangPython, true
	case ".rs":
		return LangRust, true
	default:
		return "", false
	}
}

// LanguageFromName maps a stored language tag back to a Language.
func LanguageFromName(name string) (Language, bool) {
	switch strings.ToLower(name) {
	case "go":
		return LangGo, true
	case "javascript", "js":
		return LangJavaScript, true
	case "typescript", "ts":
		return LangTypeScript, true
	case "tsx":
		return LangTSX, true
	case "python", "py":
		return LangPython, true
	case "rust", "rs":
		return LangRust, true
	default:
		return "", false
	}
}

// functionNodeTypes returns the AST node types that declare functions.
func functionNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"function_declaration", "method_declaration"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"function_declaration", "generator_function_declaration", "method_definition"}
	case LangPython:
		return []string{"function_definition"}
	case LangRust:
		return []string{"function_item"}
	default:
		return nil
	}
}

// classNodeTypes returns the AST node types that declare type containers.
func classNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"type_declaration"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"class_declaration", "interface_declaration"}
	case LangPython:
		return []string{"class_definition"}
	case LangRust:
		return []string{"struct_item", "enum_item", "trait_item", "impl_item"}
	default:
		return nil
	}
}

// branchNodeTypes returns the AST node types counted as branches.
func branchNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"if_statement", "expression_switch_statement", "type_switch_statement", "select_statement"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"if_statement", "switch_statement", "ternary_expression", "conditional_expression"}
	case LangPython:
		return []string{"if_statement", "conditional_expression", "match_statement"}
	case LangRust:
		return []string{"if_expression", "match_expression", "if_let_expression"}
	default:
		return nil
	}
}

// loopNodeTypes returns the AST node types counted as loops.
func loopNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"for_statement"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"for_statement", "for_in_statement", "while_statement", "do_statement"}
	case LangPython:
		return []string{"for_statement", "while_statement"}
	case LangRust:
		return []string{"for_expression", "while_expression", "loop_expression", "while_let_expression"}
	default:
		return nil
	}
}

// callNodeTypes returns the AST node types counted as calls.
func callNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"call_expression"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"call_expression", "new_expression"}
	case LangPython:
		return []string{"call"}
	case LangRust:
		return []string{"call_expression", "macro_invocation"}
	default:
		return nil
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
