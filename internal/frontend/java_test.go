package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/unitsync/internal/types"
)

func TestJavaLocateFocal(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected string
		pos      types.Position
	}{
		{
			name: "call inside assertThat",
			code: `
@Test
void catalogLoads() {
	@SuppressWarnings("rawtypes")
	ResponseEntity<Map> entity = new TestRestTemplate()
			.getForEntity("http://localhost:" + this.port + "/context/eureka/apps", Map.class);
	assertThat(entity.getStatusCode()).isEqualTo(HttpStatus.OK);
	String computedPath = entity.getHeaders().getFirst("X-Version-Filter-Computed-Path");
	assertThat(computedPath).isEqualTo("/context/eureka/v2/apps");
}`,
			expected: "getStatusCode",
			pos:      types.Position{Line: 6, Column: 19},
		},
		{
			name: "single assertion",
			code: `
@Test
void testAdd() {
    assertThat(add(1, 2)).isEqualTo(3);
}`,
			expected: "add",
			pos:      types.Position{Line: 3, Column: 15},
		},
		{
			name: "receiver chain",
			code: `
@Test
void testCompareTo() {
    assertTrue(0 == Status.INITIAL.compareTo(Status.INITIAL));
    assertTrue(0 > Status.INITIAL.compareTo(Status.TRANSLATED));
    assertTrue(0 < Status.SPECIAL.compareTo(Status.VERIFIED));
}`,
			expected: "compareTo",
			pos:      types.Position{Line: 3, Column: 35},
		},
		{
			name: "call before the assertion",
			code: `
@Test
void catalogLoads() {
	@SuppressWarnings("rawtypes")
	ResponseEntity<Map> entity = new TestRestTemplate()
			.getForEntity("http://localhost:" + this.port + "/context/eureka/apps", Map.class);
	String computedPath = entity.getHeaders().getFirst("X-Version-Filter-Computed-Path");
	assertThat(computedPath).isEqualTo("/context/eureka/v2/apps");
}`,
			expected: "getFirst",
			pos:      types.Position{Line: 6, Column: 43},
		},
		{
			name: "split statement",
			code: `
@Test
void testAdd() {
    int z = add(1, 2);
    assertThat(z).isEqualTo(3);
}`,
			expected: "add",
			pos:      types.Position{Line: 3, Column: 12},
		},
		{
			name: "assertion inside a branch",
			code: `
@Test
public void testInputParts(ServiceTransformationEngine transformationEngine, @All ServiceManager serviceManager) throws Exception {

    //check and import services
    checkAndImportServices(transformationEngine, serviceManager);

    URI op = findServiceURI(serviceManager, "serv1323166560");
    String[] expected = {"con241744282", "con1849951292", "con1653328292"};
    if (op != null) {
        Set<URI> ops = serviceManager.listOperations(op);
        Set<URI> inputs = serviceManager.listInputs(ops.iterator().next());
        Set<URI> parts = new HashSet<URI>(serviceManager.listMandatoryParts(inputs.iterator().next()));
        assertTrue(parts.size() == 3);
        for (URI part : parts) {
            boolean valid = false;
            for (String expectedInput : expected) {
                if (part.toASCIIString().contains(expectedInput)) {
                    valid = true;
                    break;
                }
            }
            assertTrue(valid);
        }
    } else {
        fail();
    }

    serviceManager.shutdown();
}`,
			expected: "size",
			pos:      types.Position{Line: 13, Column: 25},
		},
	}

	fe := javaFrontend{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parseCode(t, types.Java, tt.code)
			call := requireFocal(t, fe.LocateFocal(tree, firstTest(t, tree, "method_declaration")))
			assert.Equal(t, tt.expected, call.Name)
			assert.Equal(t, tt.pos, call.Position)
		})
	}
}

func TestJavaLocateFocalWithoutAssertion(t *testing.T) {
	tree := parseCode(t, types.Java, "@Test\nvoid testNothing() {\n}")
	fe := javaFrontend{}
	assert.False(t, fe.LocateFocal(tree, firstTest(t, tree, "method_declaration")).IsFound())
}

const javaAddSource = `
import org.junit.jupiter.api.Assertions;
import org.junit.jupiter.api.Test;

/**
 * Add
 */
public class Add {
    public static void main(String[] args) {
        int c = add(10, 20);
    }

    public static int add(int a, int b) {
        return a + b;
    }

    @Deprecated
    public static int sub(int a, int b) {
        return a - b;
    }

    @Test
    public void testAdd() {
        Assertions.assertEquals(30, add(10, 20));
    }

    public void testSub() {
        Assertions.assertEquals(10, sub(20, 10));
    }
}`

func TestJavaDiscoverTests(t *testing.T) {
	fe := javaFrontend{}
	assert.True(t, fe.MatchesFile("src/test/Add.java", javaAddSource))
	assert.False(t, fe.MatchesFile("src/test/Add.kt", javaAddSource))
	assert.False(t, fe.MatchesFile("src/Add.java", "public class Add {}"))

	tree := parseCode(t, types.Java, javaAddSource)
	tests := fe.DiscoverTests(tree)
	require.Len(t, tests, 1)
	assert.Equal(t, "Add::testAdd", tests[0].Name)

	call := requireFocal(t, fe.LocateFocal(tree, tests[0]))
	assert.Equal(t, "add", call.Name)
}

func TestJavaDefinitionAt(t *testing.T) {
	fe := javaFrontend{}
	tree := parseCode(t, types.Java, javaAddSource)

	decl, ok := fe.DefinitionAt(tree, 12).Get()
	require.True(t, ok)
	assert.Equal(t, "add", fe.DeclarationName(tree, decl))

	// servers point at the method name, one line below the annotation
	decl, ok = fe.DefinitionAt(tree, 17).Get()
	require.True(t, ok)
	assert.Equal(t, "sub", fe.DeclarationName(tree, decl))

	// a modifier count past the start row still matches the same method
	decl, ok = fe.DefinitionAt(tree, 13).Get()
	require.True(t, ok)
	assert.Equal(t, "add", fe.DeclarationName(tree, decl))

	assert.False(t, fe.DefinitionAt(tree, 15).IsFound())
}
