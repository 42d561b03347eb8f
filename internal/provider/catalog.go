package provider

// Version-pinned model catalogs for backends without an enumeration endpoint.
var (
	anthropicModels = []string{
		"claude-3-opus-20240229",
		"claude-3-sonnet-20240229",
		"claude-3-haiku-20240307",
		"claude-2.1",
		"claude-2.0",
		"claude-instant-1.2",
	}

	huggingFaceModels = []string{
		"microsoft/DialoGPT-large",
		"microsoft/DialoGPT-medium",
		"facebook/blenderbot-400M-distill",
		"facebook/blenderbot-1B-distill",
		"google/flan-t5-large",
		"google/flan-t5-xl",
		"bigscience/bloom-560m",
		"bigscience/bloom-1b1",
		"EleutherAI/gpt-neo-1.3B",
		"EleutherAI/gpt-neo-2.7B",
		"EleutherAI/gpt-j-6B",
	}

	cohereModels = []string{
		"command",
		"command-light",
		"command-nightly",
		"command-light-nightly",
	}

	togetherModels = []string{
		"meta-llama/Llama-2-7b-chat-hf",
		"meta-llama/Llama-2-13b-chat-hf",
		"meta-llama/Llama-2-70b-chat-hf",
		"codellama/CodeLlama-7b-Instruct-hf",
		"codellama/CodeLlama-13b-Instruct-hf",
		"codellama/CodeLlama-34b-Instruct-hf",
		"mistralai/Mistral-7B-Instruct-v0.1",
		"mistralai/Mixtral-8x7B-Instruct-v0.1",
		"NousResearch/Nous-Hermes-2-Mixtral-8x7B-DPO",
		"teknium/OpenHermes-2.5-Mistral-7B",
		"Open-Orca/Mistral-7B-OpenOrca",
		"WizardLM/WizardLM-13B-V1.2",
		"upstage/SOLAR-10.7B-Instruct-v1.0",
	}

	groqModels = []string{
		"llama2-70b-4096",
		"mixtral-8x7b-32768",
		"gemma-7b-it",
		"llama3-groq-70b-8192-tool-use-preview",
		"llama3-groq-8b-8192-tool-use-preview",
		"llama-3.1-70b-versatile",
		"llama-3.1-8b-instant",
		"llama3-70b-8192",
		"llama3-8b-8192",
	}

	// Returned when a LocalAI server cannot enumerate its models.
	localAIFallbackModels = []string{
		"gpt-3.5-turbo",
		"gpt-4",
		"llama2",
		"llama2-chat",
		"codellama",
		"mistral",
		"mixtral",
		"vicuna",
		"alpaca",
		"wizardlm",
		"orca-mini",
	}
)
