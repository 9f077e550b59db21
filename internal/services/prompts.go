package services

// --- Image description prompt ---
const imageDescriptionPrompt = `Analyze the content of image %d in detail. Extract its main elements, any text it contains, and its structure.`

// --- Structure extraction prompts ---
const StructureSystemPrompt = "You are an assistant that extracts the structure needed to build a slide deck from image analyses and an instruction."
const structureUserPrompt = `Image analysis results:
%s

Instruction:
%s

From the information above, extract a structure suited to building slides and output it in the following format:
- Title
- Subtitle
- Key points (bulleted list)
- Conclusion`

// --- Slide outline prompts ---
const OutlineSystemPrompt = "You are an assistant that creates slide outlines."
const outlineUserPrompt = `Create a slide outline from the following structure:

%s

Include the following for every slide:
1. Slide number
2. Title
3. Main content
4. Suggested visual elements to add`

// --- Detailed slide prompts ---
const DetailSystemPrompt = "You are an assistant that generates detailed slide content."
const detailUserPrompt = `Generate detailed slide content from the following outline:

%s

Include the following for every slide:
1. Slide number
2. Title
3. Content (complete sentences)
4. Visual elements (description of charts and images)
5. Design suggestions

Output the result in JSON format.`

// --- HTML rendering prompts ---
const RenderSystemPrompt = "You are an assistant that generates HTML from slide data."
const renderUserPrompt = `Generate HTML from the following slide data:

%s

Use the HTML template below. Replace {{TITLE}} with the title of the presentation and {{SLIDES}} with the HTML of the individual slides:

%s

Generate each slide as a <div class="slide"> element, put its title in <h1 class="slide-title"> and its content inside <div class="slide-content">.`
